package msk

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

// Custom resource types served by the Kafka admin handler.
const (
	ResourceTypeTopic                      = "Custom::MskTopic"
	ResourceTypeACL                        = "Custom::MskAcl"
	ResourceTypeBootstrapBrokers           = "Custom::MskBootstrapBrokers"
	ResourceTypeClusterConfigurationUpdate = "Custom::MskClusterConfigurationUpdate"
)

const (
	// DefaultTopicTimeout bounds how long the handler waits for topic leaders.
	DefaultTopicTimeout = 10 * time.Second
	// AnyHost matches every client host in an ACL.
	AnyHost = "*"
)

// KafkaAPIProps configures NewKafkaAPI.
type KafkaAPIProps struct {
	// ClusterArn is a literal ARN or an intrinsic resolving to one.
	ClusterArn            any
	ClusterType           ClusterType
	Vpc                   *vpc.Vpc
	BrokerSecurityGroupID any
	ClientAuthentication  ClientAuthentication
	// CertificateSecret is the ARN of the {key, cert} secret used over mTLS.
	CertificateSecret   any
	KafkaClientLogLevel KafkaClientLogLevel
	RemovalPolicy       cfn.RemovalPolicy
	Handler             HandlerCode
}

// Validate checks required props and auth compatibility.
func (p *KafkaAPIProps) Validate() error {
	var errs []error
	if p.ClusterArn == nil || p.ClusterArn == "" {
		errs = append(errs, errors.New("clusterArn is required"))
	} else if s, ok := p.ClusterArn.(string); ok {
		if _, err := ParseClusterArn(s); err != nil {
			errs = append(errs, err)
		}
	}
	if !p.ClusterType.IsValid() {
		errs = append(errs, fmt.Errorf("invalid cluster type %q", p.ClusterType))
	}
	if p.Vpc == nil {
		errs = append(errs, errors.New("vpc is required"))
	}
	if p.BrokerSecurityGroupID == nil || p.BrokerSecurityGroupID == "" {
		errs = append(errs, errors.New("brokerSecurityGroupId is required"))
	}
	if err := p.ClientAuthentication.Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.ClusterType == ClusterTypeServerless && p.ClientAuthentication.TLSEnabled() {
		errs = append(errs, fmt.Errorf("%w: serverless clusters only accept IAM", ErrUnsupportedAuth))
	}
	if p.ClientAuthentication.TLSEnabled() && (p.CertificateSecret == nil || p.CertificateSecret == "") {
		errs = append(errs, errors.New("certificateSecret is required when TLS authentication is enabled"))
	}
	if p.KafkaClientLogLevel != "" && !p.KafkaClientLogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("invalid kafka client log level %q", p.KafkaClientLogLevel))
	}
	if p.RemovalPolicy != "" && !p.RemovalPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("invalid removal policy %q", p.RemovalPolicy))
	}
	if err := p.Handler.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// KafkaAPI administers topics and ACLs of a cluster through custom resources.
type KafkaAPI struct {
	stack     *cfn.Stack
	id        string
	props     KafkaAPIProps
	providers map[Authentication]*provider
	topics    []MskTopic
	acls      []Acl
}

// NewKafkaAPI binds an admin API to an existing cluster. Providers are
// created lazily, on the first operation that needs them.
func NewKafkaAPI(stack *cfn.Stack, id string, props KafkaAPIProps) (*KafkaAPI, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka api %s: %w", id, err)
	}
	props.KafkaClientLogLevel = props.KafkaClientLogLevel.Or(DefaultLogLevel)
	props.RemovalPolicy = props.RemovalPolicy.Or(cfn.RemovalPolicyDestroy)
	return &KafkaAPI{
		stack:     stack,
		id:        id,
		props:     props,
		providers: make(map[Authentication]*provider),
	}, nil
}

// ClusterArn returns the administered cluster's ARN.
func (k *KafkaAPI) ClusterArn() any { return k.props.ClusterArn }

// Topics returns the topics declared through SetTopic.
func (k *KafkaAPI) Topics() []MskTopic { return append([]MskTopic(nil), k.topics...) }

// ACLs returns the ACL entries declared through SetACL and mTLS grants.
func (k *KafkaAPI) ACLs() []Acl { return append([]Acl(nil), k.acls...) }

// provider returns the provider for auth, creating it on first use.
func (k *KafkaAPI) provider(auth Authentication) (*provider, error) {
	if !auth.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAuth, auth)
	}
	if k.props.ClusterType == ClusterTypeServerless && auth != AuthenticationIAM {
		return nil, fmt.Errorf("%w: serverless clusters only accept IAM", ErrUnsupportedAuth)
	}
	if !k.props.ClientAuthentication.Supports(auth) {
		return nil, fmt.Errorf("%w: %s", ErrAuthNotEnabled, auth)
	}
	if p, ok := k.providers[auth]; ok {
		return p, nil
	}
	p, err := k.newProvider(auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", auth, err)
	}
	k.providers[auth] = p
	return p, nil
}

// HandlerRole returns the execution role of the provider for auth, if created.
func (k *KafkaAPI) HandlerRole(auth Authentication) (*iam.Role, bool) {
	p, ok := k.providers[auth]
	if !ok {
		return nil, false
	}
	return p.role, true
}

func (k *KafkaAPI) customResource(id, resourceType string, p *provider, props map[string]any, removal cfn.RemovalPolicy) (*cfn.Resource, error) {
	all := map[string]any{
		"ServiceToken":  p.ServiceToken(),
		"logLevel":      string(k.props.KafkaClientLogLevel),
		"region":        k.stack.RegionValue(),
		"mskClusterArn": k.props.ClusterArn,
	}
	for key, v := range props {
		all[key] = v
	}
	r := cfn.NewResource(resourceType, all).ApplyRemovalPolicy(removal.Or(k.props.RemovalPolicy))
	if _, err := k.stack.Add(id, r); err != nil {
		return nil, err
	}
	return r, nil
}

// TopicOptions tunes SetTopic.
type TopicOptions struct {
	RemovalPolicy cfn.RemovalPolicy
	// WaitForLeaders makes the handler wait until every partition has a
	// leader. Defaults to true.
	WaitForLeaders *bool
	Timeout        time.Duration
}

// SetTopic declares a topic managed by the admin handler using auth.
func (k *KafkaAPI) SetTopic(id string, auth Authentication, topic MskTopic, opts TopicOptions) (*cfn.Resource, error) {
	if err := topic.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topic %s: %w", id, err)
	}
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("invalid topic %s: timeout must not be negative", id)
	}
	p, err := k.provider(auth)
	if err != nil {
		return nil, err
	}
	wait := true
	if opts.WaitForLeaders != nil {
		wait = *opts.WaitForLeaders
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTopicTimeout
	}
	r, err := k.customResource(id, ResourceTypeTopic, p, map[string]any{
		"topic":          topic.Properties(),
		"waitForLeaders": wait,
		"timeout":        int(timeout / time.Millisecond),
	}, opts.RemovalPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to add topic %s: %w", topic.Topic, err)
	}
	k.topics = append(k.topics, topic)
	return r, nil
}

// SetACL declares an ACL entry. Only mTLS uses Kafka ACLs.
func (k *KafkaAPI) SetACL(id string, auth Authentication, acl Acl, removalPolicy cfn.RemovalPolicy) (*cfn.Resource, error) {
	if auth == AuthenticationIAM {
		return nil, ErrACLNotSupported
	}
	if err := acl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid acl %s: %w", id, err)
	}
	p, err := k.provider(auth)
	if err != nil {
		return nil, err
	}
	r, err := k.customResource(id, ResourceTypeACL, p, map[string]any{
		"acl": acl.Properties(),
	}, removalPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to add acl %s: %w", id, err)
	}
	k.acls = append(k.acls, acl)
	return r, nil
}

// Principal is the subject of a grant: an IAM grantee for IAM clusters or
// a certificate distinguished name for mTLS.
type Principal struct {
	Grantee           iam.Grantable
	DistinguishedName string
}

// GrantOptions tunes GrantProduce and GrantConsume.
type GrantOptions struct {
	// Host restricts mTLS ACLs to a client host. Defaults to *.
	Host          string
	RemovalPolicy cfn.RemovalPolicy
	// CustomResourceAuthentication selects the provider that writes mTLS
	// ACLs. Defaults to mTLS.
	CustomResourceAuthentication Authentication
}

// GrantProduce allows principal to write to topic. Over IAM this adds
// statements to the grantee; over mTLS it declares a WRITE ACL.
func (k *KafkaAPI) GrantProduce(id, topic string, auth Authentication, principal Principal, opts GrantOptions) ([]*cfn.Resource, error) {
	switch auth {
	case AuthenticationIAM:
		return nil, k.grantIAM(topic, principal, []iam.Statement{
			iam.Allow([]string{"kafka-cluster:Connect", "kafka-cluster:WriteDataIdempotently"}, k.props.ClusterArn),
			iam.Allow([]string{"kafka-cluster:WriteData", "kafka-cluster:DescribeTopic"}, k.topicArn(topic)),
		})
	case AuthenticationMTLS:
		return k.grantMTLS(id, principal, opts, []aclGrant{
			{suffix: "Write", resourceType: AclResourceTopic, name: topic, op: AclOperationWrite},
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAuth, auth)
	}
}

// GrantConsume allows principal to read topic with any consumer group.
func (k *KafkaAPI) GrantConsume(id, topic string, auth Authentication, principal Principal, opts GrantOptions) ([]*cfn.Resource, error) {
	switch auth {
	case AuthenticationIAM:
		return nil, k.grantIAM(topic, principal, []iam.Statement{
			iam.Allow([]string{"kafka-cluster:Connect"}, k.props.ClusterArn),
			iam.Allow([]string{"kafka-cluster:ReadData", "kafka-cluster:DescribeTopic"}, k.topicArn(topic)),
			iam.Allow([]string{"kafka-cluster:AlterGroup", "kafka-cluster:DescribeGroup"}, k.groupArn("*")),
		})
	case AuthenticationMTLS:
		return k.grantMTLS(id, principal, opts, []aclGrant{
			{suffix: "Read", resourceType: AclResourceTopic, name: topic, op: AclOperationRead},
			{suffix: "Group", resourceType: AclResourceGroup, name: "*", op: AclOperationRead},
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAuth, auth)
	}
}

func (k *KafkaAPI) grantIAM(topic string, principal Principal, statements []iam.Statement) error {
	if principal.Grantee == nil {
		return fmt.Errorf("%w: IAM grants need a grantee", ErrPrincipalMismatch)
	}
	if !k.props.ClientAuthentication.IAMEnabled() {
		return fmt.Errorf("%w: iam", ErrAuthNotEnabled)
	}
	if err := (MskTopic{Topic: topic}).Validate(); err != nil {
		return err
	}
	for _, s := range statements {
		if err := principal.Grantee.AddToPrincipalPolicy(s); err != nil {
			return fmt.Errorf("failed to grant %s on %s: %w", principal.Grantee.PrincipalName(), topic, err)
		}
	}
	return nil
}

type aclGrant struct {
	suffix       string
	resourceType AclResourceType
	name         string
	op           AclOperation
}

func (k *KafkaAPI) grantMTLS(id string, principal Principal, opts GrantOptions, grants []aclGrant) ([]*cfn.Resource, error) {
	if principal.DistinguishedName == "" || principal.Grantee != nil {
		return nil, fmt.Errorf("%w: mTLS grants need only a distinguished name", ErrPrincipalMismatch)
	}
	host := opts.Host
	if host == "" {
		host = AnyHost
	}
	auth := opts.CustomResourceAuthentication
	if auth == "" {
		auth = AuthenticationMTLS
	}
	out := make([]*cfn.Resource, 0, len(grants))
	for _, g := range grants {
		r, err := k.SetACL(cfn.LogicalID(id, g.suffix), auth, Acl{
			ResourceType:        g.resourceType,
			ResourceName:        g.name,
			ResourcePatternType: ResourcePatternLiteral,
			Principal:           UserPrincipal(principal.DistinguishedName),
			Host:                host,
			Operation:           g.op,
			PermissionType:      AclPermissionAllow,
		}, opts.RemovalPolicy)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// AddClusterPolicy attaches a resource policy to the administered cluster.
func (k *KafkaAPI) AddClusterPolicy(id string, doc *iam.PolicyDocument) (*cfn.Resource, error) {
	return addClusterPolicy(k.stack, id, k.props.ClusterArn, doc)
}

func (k *KafkaAPI) topicArn(topic string) any { return kafkaResourceArn(k.props.ClusterArn, "topic", topic) }

func (k *KafkaAPI) groupArn(group string) any { return kafkaResourceArn(k.props.ClusterArn, "group", group) }

// ClusterArnParts are the components of an MSK cluster ARN.
type ClusterArnParts struct {
	Partition string
	Region    string
	Account   string
	Name      string
	UUID      string
}

// ParseClusterArn splits arn:<partition>:kafka:<region>:<account>:cluster/<name>/<uuid>.
func ParseClusterArn(arn string) (ClusterArnParts, error) {
	fields := strings.SplitN(arn, ":", 6)
	if len(fields) != 6 || fields[0] != "arn" || fields[2] != "kafka" {
		return ClusterArnParts{}, fmt.Errorf("invalid MSK cluster ARN %q", arn)
	}
	resource := strings.Split(fields[5], "/")
	if len(resource) != 3 || resource[0] != "cluster" || resource[1] == "" || resource[2] == "" {
		return ClusterArnParts{}, fmt.Errorf("invalid MSK cluster ARN %q: resource must be cluster/<name>/<uuid>", arn)
	}
	return ClusterArnParts{
		Partition: fields[1],
		Region:    fields[3],
		Account:   fields[4],
		Name:      resource[1],
		UUID:      resource[2],
	}, nil
}

// kafkaResourceArn derives the ARN of a topic or group on the cluster.
// Intrinsic cluster ARNs are taken apart at deploy time.
func kafkaResourceArn(clusterArn any, kind, name string) any {
	if s, ok := clusterArn.(string); ok {
		if p, err := ParseClusterArn(s); err == nil {
			return fmt.Sprintf("arn:%s:kafka:%s:%s:%s/%s/%s/%s", p.Partition, p.Region, p.Account, kind, p.Name, p.UUID, name)
		}
	}
	colon := cfn.Split(":", clusterArn)
	slash := cfn.Split("/", clusterArn)
	return cfn.SubWith("arn:${Partition}:kafka:${Region}:${Account}:"+kind+"/${ClusterName}/${ClusterUuid}/"+name, map[string]any{
		"Partition":   cfn.Select(1, colon),
		"Region":      cfn.Select(3, colon),
		"Account":     cfn.Select(4, colon),
		"ClusterName": cfn.Select(1, slash),
		"ClusterUuid": cfn.Select(2, slash),
	})
}
