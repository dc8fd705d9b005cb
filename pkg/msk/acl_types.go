package msk

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
)

// AclOperation is a Kafka ACL operation. Codes match the Kafka protocol.
type AclOperation int

const (
	AclOperationUnknown AclOperation = iota
	AclOperationAny
	AclOperationAll
	AclOperationRead
	AclOperationWrite
	AclOperationCreate
	AclOperationDelete
	AclOperationAlter
	AclOperationDescribe
	AclOperationClusterAction
	AclOperationDescribeConfigs
	AclOperationAlterConfigs
	AclOperationIdempotentWrite
	AclOperationCreateTokens
	AclOperationDescribeTokens
)

var aclOperationNames = []string{
	"UNKNOWN", "ANY", "ALL", "READ", "WRITE", "CREATE", "DELETE", "ALTER",
	"DESCRIBE", "CLUSTER_ACTION", "DESCRIBE_CONFIGS", "ALTER_CONFIGS",
	"IDEMPOTENT_WRITE", "CREATE_TOKENS", "DESCRIBE_TOKENS",
}

// AclPermission is a Kafka ACL permission type.
type AclPermission int

const (
	AclPermissionUnknown AclPermission = iota
	AclPermissionAny
	AclPermissionDeny
	AclPermissionAllow
)

var aclPermissionNames = []string{"UNKNOWN", "ANY", "DENY", "ALLOW"}

// AclResourceType is the kind of Kafka resource an ACL applies to.
type AclResourceType int

const (
	AclResourceUnknown AclResourceType = iota
	AclResourceAny
	AclResourceTopic
	AclResourceGroup
	AclResourceCluster
	AclResourceTransactionalID
	AclResourceDelegationToken
)

var aclResourceTypeNames = []string{
	"UNKNOWN", "ANY", "TOPIC", "GROUP", "CLUSTER", "TRANSACTIONAL_ID", "DELEGATION_TOKEN",
}

// ResourcePatternType controls how an ACL resource name is matched.
type ResourcePatternType int

const (
	ResourcePatternUnknown ResourcePatternType = iota
	ResourcePatternAny
	ResourcePatternMatch
	ResourcePatternLiteral
	ResourcePatternPrefixed
)

var resourcePatternTypeNames = []string{"UNKNOWN", "ANY", "MATCH", "LITERAL", "PREFIXED"}

func enumName(names []string, code int) string {
	if code >= 0 && code < len(names) {
		return names[code]
	}
	return fmt.Sprintf("UNKNOWN(%d)", code)
}

// parseEnum resolves a canonical name case-insensitively. UNKNOWN is rejected.
func parseEnum(kind string, names []string, s string) (int, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for code, name := range names {
		if code > 0 && name == normalized {
			return code, nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q: must be one of %s", kind, s, strings.Join(names[1:], ", "))
}

func (o AclOperation) String() string { return enumName(aclOperationNames, int(o)) }

// IsValid reports whether o is a known operation other than UNKNOWN.
func (o AclOperation) IsValid() bool { return o > 0 && int(o) < len(aclOperationNames) }

// Sarama converts o to the sarama operation code.
func (o AclOperation) Sarama() sarama.AclOperation { return sarama.AclOperation(o) }

// ParseAclOperation parses an operation name such as READ or describe_configs.
func ParseAclOperation(s string) (AclOperation, error) {
	code, err := parseEnum("acl operation", aclOperationNames, s)
	return AclOperation(code), err
}

// MarshalText implements encoding.TextMarshaler.
func (o AclOperation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *AclOperation) UnmarshalText(b []byte) error {
	v, err := ParseAclOperation(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (p AclPermission) String() string { return enumName(aclPermissionNames, int(p)) }

// IsValid reports whether p is a known permission other than UNKNOWN.
func (p AclPermission) IsValid() bool { return p > 0 && int(p) < len(aclPermissionNames) }

// Sarama converts p to the sarama permission type.
func (p AclPermission) Sarama() sarama.AclPermissionType { return sarama.AclPermissionType(p) }

// ParseAclPermission parses ALLOW, DENY or ANY.
func ParseAclPermission(s string) (AclPermission, error) {
	code, err := parseEnum("acl permission", aclPermissionNames, s)
	return AclPermission(code), err
}

// MarshalText implements encoding.TextMarshaler.
func (p AclPermission) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *AclPermission) UnmarshalText(b []byte) error {
	v, err := ParseAclPermission(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (r AclResourceType) String() string { return enumName(aclResourceTypeNames, int(r)) }

// IsValid reports whether r is a known resource type other than UNKNOWN.
func (r AclResourceType) IsValid() bool { return r > 0 && int(r) < len(aclResourceTypeNames) }

// Sarama converts r to the sarama resource type.
func (r AclResourceType) Sarama() sarama.AclResourceType { return sarama.AclResourceType(r) }

// ParseAclResourceType parses a resource type such as TOPIC or TRANSACTIONAL_ID.
func ParseAclResourceType(s string) (AclResourceType, error) {
	code, err := parseEnum("acl resource type", aclResourceTypeNames, s)
	return AclResourceType(code), err
}

// MarshalText implements encoding.TextMarshaler.
func (r AclResourceType) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *AclResourceType) UnmarshalText(b []byte) error {
	v, err := ParseAclResourceType(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (p ResourcePatternType) String() string { return enumName(resourcePatternTypeNames, int(p)) }

// IsValid reports whether p is a known pattern type other than UNKNOWN.
func (p ResourcePatternType) IsValid() bool {
	return p > 0 && int(p) < len(resourcePatternTypeNames)
}

// Sarama converts p to the sarama pattern type.
func (p ResourcePatternType) Sarama() sarama.AclResourcePatternType {
	return sarama.AclResourcePatternType(p)
}

// ParseResourcePatternType parses LITERAL, PREFIXED, MATCH or ANY.
func ParseResourcePatternType(s string) (ResourcePatternType, error) {
	code, err := parseEnum("resource pattern type", resourcePatternTypeNames, s)
	return ResourcePatternType(code), err
}

// MarshalText implements encoding.TextMarshaler.
func (p ResourcePatternType) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ResourcePatternType) UnmarshalText(b []byte) error {
	v, err := ParseResourcePatternType(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
