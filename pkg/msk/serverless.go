package msk

import (
	"errors"
	"fmt"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

// DefaultServerlessClusterName is used when no cluster name is configured.
const DefaultServerlessClusterName = "default-msk-serverless"

// ServerlessProps configures NewMskServerless.
type ServerlessProps struct {
	ClusterName         string
	Vpc                 *vpc.Vpc
	VpcProps            vpc.Props
	SecurityGroups      []any
	KafkaClientLogLevel KafkaClientLogLevel
	RemovalPolicy       cfn.RemovalPolicy
	Handler             HandlerCode
}

// MskServerless is a serverless MSK cluster. Serverless clusters only
// support IAM authentication.
type MskServerless struct {
	stack     *cfn.Stack
	id        string
	name      string
	vpc       *vpc.Vpc
	brokerSGs []any
	cluster   *cfn.Resource
	brokers   *cfn.Resource
	api       *KafkaAPI
}

// NewMskServerless declares a serverless cluster.
func NewMskServerless(stack *cfn.Stack, id string, props ServerlessProps) (*MskServerless, error) {
	if props.ClusterName == "" {
		props.ClusterName = DefaultServerlessClusterName
	}
	props.KafkaClientLogLevel = props.KafkaClientLogLevel.Or(DefaultLogLevel)
	props.RemovalPolicy = props.RemovalPolicy.Or(cfn.RemovalPolicyDestroy)

	var errs []error
	if !clusterNameRegex.MatchString(props.ClusterName) {
		errs = append(errs, fmt.Errorf("invalid cluster name %q", props.ClusterName))
	}
	if n := DefaultAZCount(props.Vpc, props.VpcProps); n < 2 {
		errs = append(errs, fmt.Errorf("serverless clusters need subnets in at least 2 availability zones, got %d", n))
	}
	if !props.RemovalPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("invalid removal policy %q", props.RemovalPolicy))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid serverless cluster %s: %w", id, err)
	}

	s := &MskServerless{stack: stack, id: id, name: props.ClusterName}
	var err error
	s.vpc, s.brokerSGs, err = networking(stack, id, props.Vpc, props.VpcProps, props.SecurityGroups, vpc.Port(AuthenticationIAM.BrokerPort()))
	if err != nil {
		return nil, err
	}

	s.cluster = cfn.NewResource("AWS::MSK::ServerlessCluster", map[string]any{
		"ClusterName": props.ClusterName,
		"ClientAuthentication": map[string]any{
			"Sasl": map[string]any{"Iam": map[string]any{"Enabled": true}},
		},
		"VpcConfigs": []any{map[string]any{
			"SubnetIds":      clientSubnets(s.vpc),
			"SecurityGroups": append([]any(nil), s.brokerSGs...),
		}},
	}).ApplyRemovalPolicy(props.RemovalPolicy)
	if _, err := stack.Add(cfn.LogicalID(id, "Cluster"), s.cluster); err != nil {
		return nil, err
	}

	s.api, err = NewKafkaAPI(stack, cfn.LogicalID(id, "KafkaApi"), KafkaAPIProps{
		ClusterArn:            s.cluster.Ref(),
		ClusterType:           ClusterTypeServerless,
		Vpc:                   s.vpc,
		BrokerSecurityGroupID: s.brokerSGs[0],
		ClientAuthentication:  Sasl(SaslAuthProps{IAM: true}),
		KafkaClientLogLevel:   props.KafkaClientLogLevel,
		RemovalPolicy:         props.RemovalPolicy,
		Handler:               props.Handler,
	})
	if err != nil {
		return nil, err
	}

	s.brokers, err = s.api.bootstrapBrokers(cfn.LogicalID(id, "BootstrapBrokers"))
	if err != nil {
		return nil, err
	}
	s.brokers.AddDependency(s.cluster.LogicalID())
	if err := addClusterOutputs(stack, id, s.ClusterArn(), s.brokers, []Authentication{AuthenticationIAM}); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTopic declares a topic on the cluster.
func (s *MskServerless) SetTopic(id string, topic MskTopic, opts TopicOptions) (*cfn.Resource, error) {
	r, err := s.api.SetTopic(cfn.LogicalID(s.id, id), AuthenticationIAM, topic, opts)
	if err != nil {
		return nil, err
	}
	r.AddDependency(s.cluster.LogicalID())
	return r, nil
}

// GrantProduce allows grantee to write to topic.
func (s *MskServerless) GrantProduce(id, topic string, grantee iam.Grantable) error {
	_, err := s.api.GrantProduce(cfn.LogicalID(s.id, id), topic, AuthenticationIAM, Principal{Grantee: grantee}, GrantOptions{})
	return err
}

// GrantConsume allows grantee to read from topic.
func (s *MskServerless) GrantConsume(id, topic string, grantee iam.Grantable) error {
	_, err := s.api.GrantConsume(cfn.LogicalID(s.id, id), topic, AuthenticationIAM, Principal{Grantee: grantee}, GrantOptions{})
	return err
}

// AddClusterPolicy attaches a resource policy to the cluster.
func (s *MskServerless) AddClusterPolicy(id string, doc *iam.PolicyDocument) (*cfn.Resource, error) {
	return addClusterPolicy(s.stack, cfn.LogicalID(s.id, id), s.ClusterArn(), doc)
}

// BootstrapBrokers returns the SASL/IAM bootstrap broker string.
func (s *MskServerless) BootstrapBrokers() any { return s.brokers.GetAtt(AttrBootstrapBrokersSaslIam) }

// ClusterArn returns the cluster ARN.
func (s *MskServerless) ClusterArn() any { return s.cluster.Ref() }

// ClusterName returns the physical cluster name.
func (s *MskServerless) ClusterName() string { return s.name }

// Vpc returns the VPC the cluster endpoints are placed in.
func (s *MskServerless) Vpc() *vpc.Vpc { return s.vpc }

// BrokerSecurityGroupID returns the security group admin handlers connect through.
func (s *MskServerless) BrokerSecurityGroupID() any { return s.brokerSGs[0] }

// KafkaAPI returns the embedded admin API.
func (s *MskServerless) KafkaAPI() *KafkaAPI { return s.api }
