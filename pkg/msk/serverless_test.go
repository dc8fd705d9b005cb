package msk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

func TestNewMskServerless(t *testing.T) {
	t.Parallel()
	stack := newStack(t)

	s, err := NewMskServerless(stack, "Events", ServerlessProps{
		VpcProps: vpc.Props{MaxAZs: 2},
		Handler:  testHandler,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultServerlessClusterName, s.ClusterName())
	assert.Equal(t, 2, s.Vpc().AvailabilityZoneCount())

	assert.Equal(t, []string{"EventsCluster"}, stack.ResourcesOfType("AWS::MSK::ServerlessCluster"))
	assert.Empty(t, stack.ResourcesOfType("AWS::MSK::Cluster"))
	assert.Equal(t, []string{"EventsKafkaApiIamHandler"}, stack.ResourcesOfType("AWS::Lambda::Function"))
	assert.Equal(t, []string{"EventsBootstrapBrokerStringSaslIam", "EventsClusterArn"}, stack.Outputs())

	tmpl := stack.Template()
	cluster := tmpl.Resources["EventsCluster"].Properties
	assert.Equal(t, map[string]any{"Sasl": map[string]any{"Iam": map[string]any{"Enabled": true}}}, cluster["ClientAuthentication"])
	vpcConfig := cluster["VpcConfigs"].([]any)[0].(map[string]any)
	assert.Len(t, vpcConfig["SubnetIds"], 2)

	// brokers are only reachable on the IAM port
	self := tmpl.Resources["EventsBrokerSgSelf"].Properties
	assert.Equal(t, 9098, self["FromPort"])
	assert.Equal(t, 9098, self["ToPort"])

	assert.Equal(t, cfn.GetAtt("EventsBootstrapBrokers", AttrBootstrapBrokersSaslIam), s.BootstrapBrokers())
	assert.Equal(t, []string{"EventsCluster"}, tmpl.Resources["EventsBootstrapBrokers"].DependsOn)

	require.NoError(t, stack.Validate())
}

func TestMskServerless_Operations(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	s, err := NewMskServerless(stack, "Events", ServerlessProps{
		ClusterName: "events",
		Vpc:         importedVpc(t),
		Handler:     testHandler,
	})
	require.NoError(t, err)
	assert.Empty(t, stack.ResourcesOfType("AWS::EC2::VPC"))

	topic, err := s.SetTopic("Clicks", MskTopic{Topic: "clicks", NumPartitions: 12}, TopicOptions{})
	require.NoError(t, err)
	assert.Equal(t, "EventsClicks", topic.LogicalID())
	assert.Equal(t, []string{"EventsCluster"}, topic.DependsOn)
	assert.Equal(t, []MskTopic{{Topic: "clicks", NumPartitions: 12}}, s.KafkaAPI().Topics())

	producer, err := iam.NewRole(stack, "Producer", iam.RoleProps{AssumedBy: "lambda.amazonaws.com"})
	require.NoError(t, err)
	consumer, err := iam.NewRole(stack, "Consumer", iam.RoleProps{AssumedBy: "lambda.amazonaws.com"})
	require.NoError(t, err)
	require.NoError(t, s.GrantProduce("Produce", "clicks", producer))
	require.NoError(t, s.GrantConsume("Consume", "clicks", consumer))
	assert.Len(t, producer.Statements(), 2)
	assert.Len(t, consumer.Statements(), 3)
	assert.Error(t, s.GrantProduce("Bad", "bad topic", producer))

	policy, err := s.AddClusterPolicy("Policy", iam.NewPolicyDocument(iam.Statement{
		Effect:    iam.EffectAllow,
		Principal: iam.AccountRootPrincipal(),
		Action:    []string{"kafka:CreateVpcConnection"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "AWS::MSK::ClusterPolicy", policy.Type)
	assert.Equal(t, s.ClusterArn(), policy.Properties["ClusterArn"])

	// serverless clusters have no mTLS provider to write ACLs with
	_, err = s.KafkaAPI().SetACL("Acl", AuthenticationMTLS, writeACL(), "")
	assert.ErrorIs(t, err, ErrUnsupportedAuth)

	require.NoError(t, stack.Validate())
}

func TestNewMskServerless_Invalid(t *testing.T) {
	t.Parallel()
	_, err := NewMskServerless(newStack(t), "Events", ServerlessProps{
		VpcProps: vpc.Props{MaxAZs: 1},
		Handler:  testHandler,
	})
	assert.ErrorContains(t, err, "at least 2 availability zones")

	_, err = NewMskServerless(newStack(t), "Events", ServerlessProps{ClusterName: "-bad", Handler: testHandler})
	assert.ErrorContains(t, err, "invalid cluster name")

	_, err = NewMskServerless(newStack(t), "Events", ServerlessProps{})
	assert.ErrorContains(t, err, "s3Bucket is required")
}
