package config

import (
	"sort"
	"time"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/msk"
)

// Config is the full stack description read from mskstack.yaml.
type Config struct {
	Stack           StackConfig           `yaml:"stack"`
	Handler         HandlerConfig         `yaml:"handler"`
	Staging         StagingConfig         `yaml:"staging,omitempty"`
	Cluster         ClusterConfig         `yaml:"cluster"`
	Topics          []TopicConfig         `yaml:"topics,omitempty"`
	ACLs            []ACLConfig           `yaml:"acls,omitempty"`
	Grants          []GrantConfig         `yaml:"grants,omitempty"`
	ClusterPolicies []ClusterPolicyConfig `yaml:"clusterPolicies,omitempty"`
}

// StackConfig names the CloudFormation stack and pins its environment.
type StackConfig struct {
	Name string `yaml:"name"`
	// Region and Account pin the stack. Empty values defer to the AWS
	// configuration of the caller at deploy time.
	Region      string            `yaml:"region,omitempty"`
	Account     string            `yaml:"account,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Tags        map[string]string `yaml:"tags,omitempty"`
}

// HandlerConfig locates the Kafka admin handler package.
type HandlerConfig struct {
	S3Bucket        string        `yaml:"s3Bucket"`
	S3Key           string        `yaml:"s3Key"`
	S3ObjectVersion string        `yaml:"s3ObjectVersion,omitempty"`
	Runtime         string        `yaml:"runtime,omitempty"`
	Handler         string        `yaml:"handler,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	MemorySize      int           `yaml:"memorySize,omitempty"`
	Architecture    string        `yaml:"architecture,omitempty"`
}

// StagingConfig is where templates too large to send inline are uploaded.
type StagingConfig struct {
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	// Create makes deploy create the bucket when it does not exist.
	Create bool `yaml:"create,omitempty"`
}

// ClusterType selects which construct the cluster section describes.
type ClusterType string

const (
	// ClusterTypeProvisioned creates a provisioned MSK cluster.
	ClusterTypeProvisioned ClusterType = "provisioned"
	// ClusterTypeServerless creates a serverless MSK cluster.
	ClusterTypeServerless ClusterType = "serverless"
	// ClusterTypeExternal administers a cluster created outside the stack.
	ClusterTypeExternal ClusterType = "external"
)

// ValidClusterTypes returns all cluster types.
func ValidClusterTypes() []ClusterType {
	return []ClusterType{ClusterTypeProvisioned, ClusterTypeServerless, ClusterTypeExternal}
}

// IsValid returns true if the cluster type is known.
func (t ClusterType) IsValid() bool {
	switch t {
	case ClusterTypeProvisioned, ClusterTypeServerless, ClusterTypeExternal:
		return true
	default:
		return false
	}
}

// ClusterConfig describes the cluster. Exactly one of the per-type sections
// is read, the one matching Type.
type ClusterConfig struct {
	Type          ClusterType             `yaml:"type"`
	Name          string                  `yaml:"name,omitempty"`
	RemovalPolicy cfn.RemovalPolicy       `yaml:"removalPolicy,omitempty"`
	LogLevel      msk.KafkaClientLogLevel `yaml:"logLevel,omitempty"`
	Vpc           VpcConfig               `yaml:"vpc,omitempty"`

	Provisioned *ProvisionedConfig `yaml:"provisioned,omitempty"`
	External    *ExternalConfig    `yaml:"external,omitempty"`
}

// VpcConfig either references an existing VPC (ID set) or sizes a new one.
type VpcConfig struct {
	ID               string   `yaml:"id,omitempty"`
	CIDR             string   `yaml:"cidr,omitempty"`
	PrivateSubnetIDs []string `yaml:"privateSubnetIds,omitempty"`
	SecurityGroupIDs []string `yaml:"securityGroupIds,omitempty"`

	MaxAZs               int   `yaml:"maxAzs,omitempty"`
	NatGateways          *int  `yaml:"natGateways,omitempty"`
	FlowLogs             *bool `yaml:"flowLogs,omitempty"`
	FlowLogRetentionDays int   `yaml:"flowLogRetentionDays,omitempty"`
}

// Existing reports whether the VPC is referenced rather than created.
func (v VpcConfig) Existing() bool { return v.ID != "" }

// AuthConfig enables client authentication methods.
type AuthConfig struct {
	IAM   bool       `yaml:"iam,omitempty"`
	Scram bool       `yaml:"scram,omitempty"`
	TLS   *TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig lists the private CAs trusted for mTLS clients.
type TLSConfig struct {
	CertificateAuthorities []string `yaml:"certificateAuthorities"`
}

// ClientAuthentication converts the section to its construct value.
func (a AuthConfig) ClientAuthentication() msk.ClientAuthentication {
	sasl := msk.SaslAuthProps{IAM: a.IAM, Scram: a.Scram}
	hasSasl := a.IAM || a.Scram
	if a.TLS == nil {
		if !hasSasl {
			return msk.ClientAuthentication{}
		}
		return msk.Sasl(sasl)
	}
	tls := msk.TLSAuthProps{CertificateAuthorities: stringsToAny(a.TLS.CertificateAuthorities)}
	if !hasSasl {
		return msk.TLS(tls)
	}
	return msk.SaslTLS(sasl, tls)
}

// IsZero reports whether no method is enabled.
func (a AuthConfig) IsZero() bool { return !a.IAM && !a.Scram && a.TLS == nil }

// DefaultMethod is the method admin operations use when none is named:
// IAM when enabled, otherwise mTLS.
func (a AuthConfig) DefaultMethod() msk.Authentication {
	if a.IAM || a.TLS == nil {
		return msk.AuthenticationIAM
	}
	return msk.AuthenticationMTLS
}

// CertificateConfig is the admin identity used over mTLS.
type CertificateConfig struct {
	AdminPrincipal    string `yaml:"adminPrincipal"`
	AclAdminPrincipal string `yaml:"aclAdminPrincipal"`
	SecretArn         string `yaml:"secretArn"`
}

// MonitoringConfig configures enhanced and open monitoring.
type MonitoringConfig struct {
	Level        msk.ClusterMonitoringLevel `yaml:"level,omitempty"`
	JmxExporter  bool                       `yaml:"jmxExporter,omitempty"`
	NodeExporter bool                       `yaml:"nodeExporter,omitempty"`
}

// LoggingConfig configures broker log delivery.
type LoggingConfig struct {
	// CloudWatch defaults to true.
	CloudWatch     *bool        `yaml:"cloudWatch,omitempty"`
	LogGroup       string       `yaml:"logGroup,omitempty"`
	FirehoseStream string       `yaml:"firehoseStream,omitempty"`
	S3             *S3LogConfig `yaml:"s3,omitempty"`
}

// S3LogConfig delivers broker logs to a bucket.
type S3LogConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix,omitempty"`
}

// ProvisionedConfig holds the provisioned cluster settings.
type ProvisionedConfig struct {
	InstanceType              msk.BrokerInstanceType `yaml:"instanceType,omitempty"`
	Brokers                   int                    `yaml:"brokers,omitempty"`
	KafkaVersion              msk.KafkaVersion       `yaml:"kafkaVersion,omitempty"`
	StorageMode               msk.StorageMode        `yaml:"storageMode,omitempty"`
	VolumeSize                int                    `yaml:"volumeSize,omitempty"`
	EncryptionKeyArn          string                 `yaml:"encryptionKeyArn,omitempty"`
	Monitoring                MonitoringConfig       `yaml:"monitoring,omitempty"`
	Logging                   LoggingConfig          `yaml:"logging,omitempty"`
	Authentication            AuthConfig             `yaml:"authentication,omitempty"`
	VpcConnectivity           *AuthConfig            `yaml:"vpcConnectivity,omitempty"`
	ServerProperties          map[string]string      `yaml:"serverProperties,omitempty"`
	AllowEveryoneIfNoAclFound *bool                  `yaml:"allowEveryoneIfNoAclFound,omitempty"`
	Certificate               *CertificateConfig     `yaml:"certificate,omitempty"`
}

// ExternalConfig references a cluster created outside the stack.
type ExternalConfig struct {
	Arn string `yaml:"arn"`
	// ClusterType is the MSK type of the referenced cluster.
	ClusterType           msk.ClusterType `yaml:"clusterType,omitempty"`
	BrokerSecurityGroupID string          `yaml:"brokerSecurityGroupId"`
	Authentication        AuthConfig      `yaml:"authentication,omitempty"`
	CertificateSecretArn  string          `yaml:"certificateSecretArn,omitempty"`
}

// TopicConfig declares a topic.
type TopicConfig struct {
	Name              string                  `yaml:"name"`
	Auth              msk.Authentication      `yaml:"auth,omitempty"`
	Partitions        int                     `yaml:"partitions,omitempty"`
	ReplicationFactor int                     `yaml:"replicationFactor,omitempty"`
	ReplicaAssignment []msk.ReplicaAssignment `yaml:"replicaAssignment,omitempty"`
	Config            map[string]string       `yaml:"config,omitempty"`
	RemovalPolicy     cfn.RemovalPolicy       `yaml:"removalPolicy,omitempty"`
	WaitForLeaders    *bool                   `yaml:"waitForLeaders,omitempty"`
	Timeout           time.Duration           `yaml:"timeout,omitempty"`
}

// ACLConfig declares a Kafka ACL entry. ACLs are written over mTLS.
type ACLConfig struct {
	ID            string             `yaml:"id,omitempty"`
	Auth          msk.Authentication `yaml:"auth,omitempty"`
	RemovalPolicy cfn.RemovalPolicy  `yaml:"removalPolicy,omitempty"`
	msk.Acl       `yaml:",inline"`
}

// Access is the kind of topic access a grant gives.
type Access string

const (
	// AccessProduce allows writing to the topic.
	AccessProduce Access = "produce"
	// AccessConsume allows reading the topic with any consumer group.
	AccessConsume Access = "consume"
)

// ValidAccesses returns all access kinds.
func ValidAccesses() []Access {
	return []Access{AccessProduce, AccessConsume}
}

// IsValid returns true if the access kind is known.
func (a Access) IsValid() bool {
	return a == AccessProduce || a == AccessConsume
}

// GrantConfig gives a principal produce or consume rights on a topic.
// IAM grants name a role; mTLS grants name a certificate subject.
type GrantConfig struct {
	ID                string             `yaml:"id,omitempty"`
	Topic             string             `yaml:"topic"`
	Access            Access             `yaml:"access"`
	Auth              msk.Authentication `yaml:"auth,omitempty"`
	RoleName          string             `yaml:"roleName,omitempty"`
	RoleArn           string             `yaml:"roleArn,omitempty"`
	DistinguishedName string             `yaml:"distinguishedName,omitempty"`
	Host              string             `yaml:"host,omitempty"`
	RemovalPolicy     cfn.RemovalPolicy  `yaml:"removalPolicy,omitempty"`
}

// ClusterPolicyConfig attaches a resource policy to the cluster.
type ClusterPolicyConfig struct {
	ID         string          `yaml:"id"`
	Statements []iam.Statement `yaml:"statements"`
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
