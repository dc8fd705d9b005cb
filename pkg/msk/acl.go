package msk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
)

// Acl is a Kafka ACL entry.
type Acl struct {
	ResourceType        AclResourceType     `yaml:"resourceType"`
	ResourceName        string              `yaml:"resourceName"`
	ResourcePatternType ResourcePatternType `yaml:"resourcePatternType"`
	Principal           string              `yaml:"principal"`
	Host                string              `yaml:"host"`
	Operation           AclOperation        `yaml:"operation"`
	PermissionType      AclPermission       `yaml:"permissionType"`
}

// Validate checks that all fields are set and no enum is UNKNOWN. ANY and
// MATCH only select ACLs in filters, so entries using them are rejected.
func (a Acl) Validate() error {
	var errs []error
	switch {
	case !a.ResourceType.IsValid():
		errs = append(errs, fmt.Errorf("invalid resource type %s", a.ResourceType))
	case a.ResourceType == AclResourceAny:
		errs = append(errs, filterOnly("resource type", a.ResourceType))
	}
	if a.ResourceName == "" {
		errs = append(errs, errors.New("resource name is required"))
	}
	switch {
	case !a.ResourcePatternType.IsValid():
		errs = append(errs, fmt.Errorf("invalid resource pattern type %s", a.ResourcePatternType))
	case a.ResourcePatternType == ResourcePatternAny, a.ResourcePatternType == ResourcePatternMatch:
		errs = append(errs, filterOnly("resource pattern type", a.ResourcePatternType))
	}
	if a.Principal == "" {
		errs = append(errs, errors.New("principal is required"))
	}
	if a.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	switch {
	case !a.Operation.IsValid():
		errs = append(errs, fmt.Errorf("invalid operation %s", a.Operation))
	case a.Operation == AclOperationAny:
		errs = append(errs, filterOnly("operation", a.Operation))
	}
	switch {
	case !a.PermissionType.IsValid():
		errs = append(errs, fmt.Errorf("invalid permission type %s", a.PermissionType))
	case a.PermissionType == AclPermissionAny:
		errs = append(errs, filterOnly("permission type", a.PermissionType))
	}
	return errors.Join(errs...)
}

func filterOnly(field string, v fmt.Stringer) error {
	return fmt.Errorf("%s %s is only valid in ACL filters", field, v)
}

// Properties returns the ACL in the shape the admin handler expects, with
// numeric enum codes.
func (a Acl) Properties() map[string]any {
	return map[string]any{
		"resourceType":        int(a.ResourceType),
		"resourceName":        a.ResourceName,
		"resourcePatternType": int(a.ResourcePatternType),
		"principal":           a.Principal,
		"host":                a.Host,
		"operation":           int(a.Operation),
		"permissionType":      int(a.PermissionType),
	}
}

// Sarama converts the entry to sarama's resource and ACL pair.
func (a Acl) Sarama() (sarama.Resource, sarama.Acl) {
	resource := sarama.Resource{
		ResourceType:        a.ResourceType.Sarama(),
		ResourceName:        a.ResourceName,
		ResourcePatternType: a.ResourcePatternType.Sarama(),
	}
	acl := sarama.Acl{
		Principal:      a.Principal,
		Host:           a.Host,
		Operation:      a.Operation.Sarama(),
		PermissionType: a.PermissionType.Sarama(),
	}
	return resource, acl
}

// Key returns a stable identity for the entry, used to compare declared and
// live ACLs.
func (a Acl) Key() string {
	return strings.Join([]string{
		a.ResourceType.String(), a.ResourcePatternType.String(), a.ResourceName,
		a.Principal, a.Host, a.Operation.String(), a.PermissionType.String(),
	}, "|")
}

// String formats the entry like kafka-acls output.
func (a Acl) String() string {
	return fmt.Sprintf("%s %s on %s:%s:%s from %s", a.PermissionType, a.Operation,
		a.ResourceType, a.ResourcePatternType, a.ResourceName, a.Principal+"@"+a.Host)
}

// AclFromSarama converts a sarama resource and ACL pair back to an Acl.
func AclFromSarama(r sarama.Resource, acl *sarama.Acl) Acl {
	return Acl{
		ResourceType:        AclResourceType(r.ResourceType),
		ResourceName:        r.ResourceName,
		ResourcePatternType: ResourcePatternType(r.ResourcePatternType),
		Principal:           acl.Principal,
		Host:                acl.Host,
		Operation:           AclOperation(acl.Operation),
		PermissionType:      AclPermission(acl.PermissionType),
	}
}

// UserPrincipal returns a Kafka principal for a certificate distinguished name.
func UserPrincipal(distinguishedName string) string {
	if strings.HasPrefix(distinguishedName, "User:") {
		return distinguishedName
	}
	return "User:" + distinguishedName
}
