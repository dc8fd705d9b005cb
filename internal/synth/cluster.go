package synth

import (
	"fmt"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/msk"
)

// Cluster is the common surface of the three cluster kinds. Resource IDs
// passed in are relative to the cluster.
type Cluster interface {
	SetTopic(id string, auth msk.Authentication, topic msk.MskTopic, opts msk.TopicOptions) (*cfn.Resource, error)
	SetACL(id string, auth msk.Authentication, acl msk.Acl, removalPolicy cfn.RemovalPolicy) (*cfn.Resource, error)
	GrantProduce(id, topic string, auth msk.Authentication, principal msk.Principal, opts msk.GrantOptions) ([]*cfn.Resource, error)
	GrantConsume(id, topic string, auth msk.Authentication, principal msk.Principal, opts msk.GrantOptions) ([]*cfn.Resource, error)
	AddClusterPolicy(id string, doc *iam.PolicyDocument) (*cfn.Resource, error)
	ClusterArn() any
	BrokerSecurityGroupID() any
	KafkaAPI() *msk.KafkaAPI
}

func synthesizeCluster(ctx *Context) error {
	c := ctx.Config.Cluster
	handler := ctx.Config.Handler.HandlerCode()

	var (
		cluster Cluster
		err     error
	)
	switch c.Type {
	case config.ClusterTypeProvisioned:
		cluster, err = newProvisioned(ctx, handler)
	case config.ClusterTypeServerless:
		cluster, err = newServerless(ctx, handler)
	case config.ClusterTypeExternal:
		cluster, err = newExternal(ctx, handler)
	default:
		err = fmt.Errorf("unknown cluster type %q", c.Type)
	}
	if err != nil {
		return err
	}
	ctx.State.Cluster = cluster
	return nil
}

func newProvisioned(ctx *Context, handler msk.HandlerCode) (Cluster, error) {
	c := ctx.Config.Cluster
	p := c.Provisioned
	if p == nil {
		return nil, fmt.Errorf("provisioned settings are missing")
	}

	logging := msk.Logging{
		CloudWatchLogGroup:         optional(p.Logging.LogGroup),
		DisableCloudWatch:          p.Logging.CloudWatch != nil && !*p.Logging.CloudWatch,
		FirehoseDeliveryStreamName: p.Logging.FirehoseStream,
	}
	if p.Logging.S3 != nil {
		logging.S3 = &msk.S3Logging{Bucket: p.Logging.S3.Bucket, Prefix: p.Logging.S3.Prefix}
	}

	m, err := msk.NewMskProvisioned(ctx.Stack, ClusterID, msk.ProvisionedProps{
		ClusterName:         c.Name,
		Vpc:                 ctx.State.Vpc,
		SecurityGroups:      stringsToAny(c.Vpc.SecurityGroupIDs),
		BrokerInstanceType:  p.InstanceType,
		NumberOfBrokerNodes: p.Brokers,
		KafkaVersion:        p.KafkaVersion,
		StorageMode:         p.StorageMode,
		EbsStorage: msk.EbsStorage{
			VolumeSize:       p.VolumeSize,
			EncryptionKeyArn: optional(p.EncryptionKeyArn),
		},
		Monitoring: msk.Monitoring{
			ClusterMonitoringLevel:       p.Monitoring.Level,
			EnablePrometheusJmxExporter:  p.Monitoring.JmxExporter,
			EnablePrometheusNodeExporter: p.Monitoring.NodeExporter,
		},
		Logging:                   logging,
		ClientAuthentication:      p.Authentication.ClientAuthentication(),
		VpcConnectivity:           p.VpcClientAuthentication(),
		ServerProperties:          p.ServerProperties,
		AllowEveryoneIfNoAclFound: p.AllowEveryoneIfNoAclFound,
		CertificateDefinition:     p.Certificate.AclAdminProps(),
		KafkaClientLogLevel:       c.LogLevel,
		RemovalPolicy:             c.RemovalPolicy,
		Handler:                   handler,
	})
	if err != nil {
		return nil, err
	}
	LogResourceDeclared(ctx.Observer, "cluster", "AWS::MSK::Cluster", cfn.LogicalID(ClusterID, "Cluster"))
	return m, nil
}

func newServerless(ctx *Context, handler msk.HandlerCode) (Cluster, error) {
	c := ctx.Config.Cluster
	s, err := msk.NewMskServerless(ctx.Stack, ClusterID, msk.ServerlessProps{
		ClusterName:         c.Name,
		Vpc:                 ctx.State.Vpc,
		SecurityGroups:      stringsToAny(c.Vpc.SecurityGroupIDs),
		KafkaClientLogLevel: c.LogLevel,
		RemovalPolicy:       c.RemovalPolicy,
		Handler:             handler,
	})
	if err != nil {
		return nil, err
	}
	LogResourceDeclared(ctx.Observer, "cluster", "AWS::MSK::ServerlessCluster", cfn.LogicalID(ClusterID, "Cluster"))
	return &serverless{s}, nil
}

func newExternal(ctx *Context, handler msk.HandlerCode) (Cluster, error) {
	c := ctx.Config.Cluster
	e := c.External
	if e == nil {
		return nil, fmt.Errorf("external settings are missing")
	}
	api, err := msk.NewKafkaAPI(ctx.Stack, ClusterID, msk.KafkaAPIProps{
		ClusterArn:            e.Arn,
		ClusterType:           e.ClusterType,
		Vpc:                   ctx.State.Vpc,
		BrokerSecurityGroupID: e.BrokerSecurityGroupID,
		ClientAuthentication:  e.Authentication.ClientAuthentication(),
		CertificateSecret:     optional(e.CertificateSecretArn),
		KafkaClientLogLevel:   c.LogLevel,
		RemovalPolicy:         c.RemovalPolicy,
		Handler:               handler,
	})
	if err != nil {
		return nil, err
	}
	LogResourceImported(ctx.Observer, "cluster", "AWS::MSK::Cluster", e.Arn)
	return &external{api: api, brokerSG: e.BrokerSecurityGroupID}, nil
}

// serverless adapts MskServerless, which only speaks IAM.
type serverless struct {
	*msk.MskServerless
}

func (s *serverless) SetTopic(id string, auth msk.Authentication, topic msk.MskTopic, opts msk.TopicOptions) (*cfn.Resource, error) {
	if auth != msk.AuthenticationIAM {
		return nil, fmt.Errorf("%w: serverless clusters only accept IAM", msk.ErrUnsupportedAuth)
	}
	return s.MskServerless.SetTopic(id, topic, opts)
}

func (s *serverless) SetACL(string, msk.Authentication, msk.Acl, cfn.RemovalPolicy) (*cfn.Resource, error) {
	return nil, fmt.Errorf("%w: serverless clusters only accept IAM", msk.ErrUnsupportedAuth)
}

func (s *serverless) GrantProduce(id, topic string, auth msk.Authentication, principal msk.Principal, _ msk.GrantOptions) ([]*cfn.Resource, error) {
	if auth != msk.AuthenticationIAM || principal.Grantee == nil {
		return nil, fmt.Errorf("%w: serverless grants need an IAM grantee", msk.ErrUnsupportedAuth)
	}
	return nil, s.MskServerless.GrantProduce(id, topic, principal.Grantee)
}

func (s *serverless) GrantConsume(id, topic string, auth msk.Authentication, principal msk.Principal, _ msk.GrantOptions) ([]*cfn.Resource, error) {
	if auth != msk.AuthenticationIAM || principal.Grantee == nil {
		return nil, fmt.Errorf("%w: serverless grants need an IAM grantee", msk.ErrUnsupportedAuth)
	}
	return nil, s.MskServerless.GrantConsume(id, topic, principal.Grantee)
}

// external adapts a KafkaAPI bound to a cluster outside the stack. IDs
// are prefixed the way the cluster constructs prefix them.
type external struct {
	api      *msk.KafkaAPI
	brokerSG string
}

func (e *external) SetTopic(id string, auth msk.Authentication, topic msk.MskTopic, opts msk.TopicOptions) (*cfn.Resource, error) {
	return e.api.SetTopic(cfn.LogicalID(ClusterID, id), auth, topic, opts)
}

func (e *external) SetACL(id string, auth msk.Authentication, acl msk.Acl, removalPolicy cfn.RemovalPolicy) (*cfn.Resource, error) {
	return e.api.SetACL(cfn.LogicalID(ClusterID, id), auth, acl, removalPolicy)
}

func (e *external) GrantProduce(id, topic string, auth msk.Authentication, principal msk.Principal, opts msk.GrantOptions) ([]*cfn.Resource, error) {
	return e.api.GrantProduce(cfn.LogicalID(ClusterID, id), topic, auth, principal, opts)
}

func (e *external) GrantConsume(id, topic string, auth msk.Authentication, principal msk.Principal, opts msk.GrantOptions) ([]*cfn.Resource, error) {
	return e.api.GrantConsume(cfn.LogicalID(ClusterID, id), topic, auth, principal, opts)
}

func (e *external) AddClusterPolicy(id string, doc *iam.PolicyDocument) (*cfn.Resource, error) {
	return e.api.AddClusterPolicy(cfn.LogicalID(ClusterID, id), doc)
}

func (e *external) ClusterArn() any { return e.api.ClusterArn() }

func (e *external) BrokerSecurityGroupID() any { return e.brokerSG }

func (e *external) KafkaAPI() *msk.KafkaAPI { return e.api }
