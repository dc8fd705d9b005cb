package msk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/mskstack/internal/util/ptr"
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

const testClusterArn = "arn:aws:kafka:eu-west-1:123456789012:cluster/orders/0b5c1f2e-1111-2222-3333-444455556666-3"

var testHandler = HandlerCode{S3Bucket: "artifacts", S3Key: "handler.zip"}

func newStack(t *testing.T) *cfn.Stack {
	t.Helper()
	s, err := cfn.NewStack("msk-test", cfn.Env{})
	require.NoError(t, err)
	return s
}

func importedVpc(t *testing.T) *vpc.Vpc {
	t.Helper()
	v, err := vpc.FromAttributes("vpc-0abc", "10.1.0.0/16", []any{"subnet-a", "subnet-b", "subnet-c"})
	require.NoError(t, err)
	return v
}

func newAPI(t *testing.T, stack *cfn.Stack, modify func(*KafkaAPIProps)) *KafkaAPI {
	t.Helper()
	props := KafkaAPIProps{
		ClusterArn:            testClusterArn,
		ClusterType:           ClusterTypeProvisioned,
		Vpc:                   importedVpc(t),
		BrokerSecurityGroupID: "sg-brokers",
		ClientAuthentication:  Sasl(SaslAuthProps{IAM: true}),
		Handler:               testHandler,
	}
	if modify != nil {
		modify(&props)
	}
	api, err := NewKafkaAPI(stack, "Api", props)
	require.NoError(t, err)
	return api
}

func mtlsProps(p *KafkaAPIProps) {
	p.ClientAuthentication = SaslTLS(SaslAuthProps{IAM: true}, TLSAuthProps{CertificateAuthorities: []any{"arn:aws:acm-pca:eu-west-1:123456789012:certificate-authority/ca"}})
	p.CertificateSecret = "arn:aws:secretsmanager:eu-west-1:123456789012:secret:kafka-admin"
}

func TestNewKafkaAPI_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		modify func(*KafkaAPIProps)
	}{
		{"missing arn", func(p *KafkaAPIProps) { p.ClusterArn = nil }},
		{"malformed arn", func(p *KafkaAPIProps) { p.ClusterArn = "arn:aws:s3:::bucket" }},
		{"missing vpc", func(p *KafkaAPIProps) { p.Vpc = nil }},
		{"missing broker sg", func(p *KafkaAPIProps) { p.BrokerSecurityGroupID = "" }},
		{"no auth", func(p *KafkaAPIProps) { p.ClientAuthentication = ClientAuthentication{} }},
		{"serverless mtls", func(p *KafkaAPIProps) {
			mtlsProps(p)
			p.ClusterType = ClusterTypeServerless
		}},
		{"tls without secret", func(p *KafkaAPIProps) {
			mtlsProps(p)
			p.CertificateSecret = nil
		}},
		{"bad log level", func(p *KafkaAPIProps) { p.KafkaClientLogLevel = "TRACE" }},
		{"bad handler", func(p *KafkaAPIProps) { p.Handler = HandlerCode{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			props := KafkaAPIProps{
				ClusterArn:            testClusterArn,
				ClusterType:           ClusterTypeProvisioned,
				Vpc:                   importedVpc(t),
				BrokerSecurityGroupID: "sg-brokers",
				ClientAuthentication:  Sasl(SaslAuthProps{IAM: true}),
				Handler:               testHandler,
			}
			tt.modify(&props)
			_, err := NewKafkaAPI(newStack(t), "Api", props)
			assert.Error(t, err)
		})
	}
}

func TestKafkaAPI_ProvidersAreLazy(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	api := newAPI(t, stack, nil)
	assert.Empty(t, stack.LogicalIDs())
	_, ok := api.HandlerRole(AuthenticationIAM)
	assert.False(t, ok)

	_, err := api.SetTopic("Orders", AuthenticationIAM, MskTopic{Topic: "orders", NumPartitions: 3}, TopicOptions{})
	require.NoError(t, err)
	_, err = api.SetTopic("Payments", AuthenticationIAM, MskTopic{Topic: "payments"}, TopicOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"ApiIamHandler"}, stack.ResourcesOfType("AWS::Lambda::Function"))
	assert.Len(t, stack.ResourcesOfType("AWS::EC2::SecurityGroup"), 1)
	assert.Equal(t, []string{"ApiBrokerSgIamHandlerIngress"}, stack.ResourcesOfType("AWS::EC2::SecurityGroupIngress"))
	assert.Len(t, stack.ResourcesOfType(ResourceTypeTopic), 2)
	assert.Len(t, api.Topics(), 2)

	role, ok := api.HandlerRole(AuthenticationIAM)
	require.True(t, ok)
	assert.Equal(t, "ApiIamHandlerRole", role.LogicalID())
	assert.Len(t, role.Statements(), 4)

	tmpl := stack.Template()
	fn := tmpl.Resources["ApiIamHandler"]
	assert.Equal(t, []string{"ApiIamHandlerRole"}, fn.DependsOn)
	assert.Equal(t, 300, fn.Properties["Timeout"])
	assert.Equal(t, []any{"arm64"}, fn.Properties["Architectures"])
	env := fn.Properties["Environment"].(map[string]any)["Variables"].(map[string]any)
	assert.Equal(t, "iam", env["AUTHENTICATION"])
	assert.Equal(t, "WARN", env["LOG_LEVEL"])
	assert.NotContains(t, env, "SECRET_ARN")

	ingress := tmpl.Resources["ApiBrokerSgIamHandlerIngress"].Properties
	assert.Equal(t, "sg-brokers", ingress["GroupId"])
	assert.Equal(t, 9098, ingress["FromPort"])

	require.NoError(t, stack.Validate())
}

func TestKafkaAPI_SetTopic(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	api := newAPI(t, stack, nil)

	r, err := api.SetTopic("Orders", AuthenticationIAM, MskTopic{Topic: "orders", NumPartitions: 3, ReplicationFactor: 2}, TopicOptions{
		RemovalPolicy:  cfn.RemovalPolicyRetain,
		WaitForLeaders: ptr.Bool(false),
		Timeout:        30 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "Orders", r.LogicalID())
	assert.Equal(t, "Retain", r.DeletionPolicy)

	props := stack.Template().Resources["Orders"].Properties
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"ApiIamHandler", "Arn"}}, props["ServiceToken"])
	assert.Equal(t, testClusterArn, props["mskClusterArn"])
	assert.Equal(t, map[string]any{"Ref": "AWS::Region"}, props["region"])
	assert.Equal(t, "WARN", props["logLevel"])
	assert.Equal(t, false, props["waitForLeaders"])
	assert.Equal(t, 30000, props["timeout"])
	assert.Equal(t, "orders", props["topic"].(map[string]any)["topic"])

	defaulted, err := api.SetTopic("Logs", AuthenticationIAM, MskTopic{Topic: "logs"}, TopicOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Delete", defaulted.DeletionPolicy)
	assert.Equal(t, true, defaulted.Properties["waitForLeaders"])
	assert.Equal(t, 10000, defaulted.Properties["timeout"])

	_, err = api.SetTopic("Bad", AuthenticationIAM, MskTopic{Topic: "bad/name"}, TopicOptions{})
	assert.Error(t, err)
	_, err = api.SetTopic("Neg", AuthenticationIAM, MskTopic{Topic: "neg"}, TopicOptions{Timeout: -time.Second})
	assert.Error(t, err)
	_, err = api.SetTopic("Tls", AuthenticationMTLS, MskTopic{Topic: "tls"}, TopicOptions{})
	assert.ErrorIs(t, err, ErrAuthNotEnabled)
	_, err = api.SetTopic("Orders", AuthenticationIAM, MskTopic{Topic: "orders"}, TopicOptions{})
	assert.ErrorIs(t, err, cfn.ErrDuplicateLogicalID)
}

func TestKafkaAPI_SetACL(t *testing.T) {
	t.Parallel()

	t.Run("iam is rejected", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t, newStack(t), nil)
		_, err := api.SetACL("Acl", AuthenticationIAM, writeACL(), "")
		assert.ErrorIs(t, err, ErrACLNotSupported)
	})

	t.Run("mtls not enabled", func(t *testing.T) {
		t.Parallel()
		api := newAPI(t, newStack(t), nil)
		_, err := api.SetACL("Acl", AuthenticationMTLS, writeACL(), "")
		assert.ErrorIs(t, err, ErrAuthNotEnabled)
	})

	t.Run("mtls", func(t *testing.T) {
		t.Parallel()
		stack := newStack(t)
		api := newAPI(t, stack, mtlsProps)
		r, err := api.SetACL("Acl", AuthenticationMTLS, writeACL(), "")
		require.NoError(t, err)
		assert.Equal(t, ResourceTypeACL, r.Type)
		assert.Equal(t, writeACL().Properties(), r.Properties["acl"])
		assert.Equal(t, []Acl{writeACL()}, api.ACLs())

		fn := stack.Template().Resources["ApiMtlsHandler"]
		require.NotNil(t, fn)
		env := fn.Properties["Environment"].(map[string]any)["Variables"].(map[string]any)
		assert.Equal(t, "arn:aws:secretsmanager:eu-west-1:123456789012:secret:kafka-admin", env["SECRET_ARN"])
		ingress := stack.Template().Resources["ApiBrokerSgMtlsHandlerIngress"].Properties
		assert.Equal(t, 9094, ingress["FromPort"])

		role, ok := api.HandlerRole(AuthenticationMTLS)
		require.True(t, ok)
		last := role.Statements()[len(role.Statements())-1]
		assert.Equal(t, []string{"secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"}, last.Action)

		invalid := writeACL()
		invalid.Host = ""
		_, err = api.SetACL("Invalid", AuthenticationMTLS, invalid, "")
		assert.Error(t, err)
	})
}

func TestKafkaAPI_GrantIAM(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	api := newAPI(t, stack, nil)
	role, err := iam.NewRole(stack, "AppRole", iam.RoleProps{AssumedBy: "ecs-tasks.amazonaws.com"})
	require.NoError(t, err)

	rs, err := api.GrantProduce("Produce", "orders", AuthenticationIAM, Principal{Grantee: role}, GrantOptions{})
	require.NoError(t, err)
	assert.Empty(t, rs)

	_, err = api.GrantConsume("Consume", "orders", AuthenticationIAM, Principal{Grantee: role}, GrantOptions{})
	require.NoError(t, err)

	statements := role.Statements()
	require.Len(t, statements, 5)
	assert.Equal(t, []string{"kafka-cluster:Connect", "kafka-cluster:WriteDataIdempotently"}, statements[0].Action)
	assert.Equal(t, []any{testClusterArn}, statements[0].Resource)
	assert.Equal(t, []any{"arn:aws:kafka:eu-west-1:123456789012:topic/orders/0b5c1f2e-1111-2222-3333-444455556666-3/orders"}, statements[1].Resource)
	assert.Equal(t, []string{"kafka-cluster:AlterGroup", "kafka-cluster:DescribeGroup"}, statements[4].Action)
	assert.Equal(t, []any{"arn:aws:kafka:eu-west-1:123456789012:group/orders/0b5c1f2e-1111-2222-3333-444455556666-3/*"}, statements[4].Resource)

	// IAM grants add no custom resources and no handler
	assert.Empty(t, stack.ResourcesOfType("AWS::Lambda::Function"))

	_, err = api.GrantProduce("Produce", "orders", AuthenticationIAM, Principal{DistinguishedName: "CN=app"}, GrantOptions{})
	assert.ErrorIs(t, err, ErrPrincipalMismatch)
	_, err = api.GrantProduce("Produce", "bad/topic", AuthenticationIAM, Principal{Grantee: role}, GrantOptions{})
	assert.Error(t, err)
	_, err = api.GrantProduce("Produce", "orders", "scram", Principal{Grantee: role}, GrantOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedAuth)
}

func TestKafkaAPI_GrantIAM_ImportedRole(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	api := newAPI(t, stack, nil)
	role, err := iam.RoleFromArn(stack, "Consumer", "arn:aws:iam::123456789012:role/service/consumer")
	require.NoError(t, err)

	_, err = api.GrantConsume("Consume", "orders", AuthenticationIAM, Principal{Grantee: role}, GrantOptions{})
	require.NoError(t, err)

	policy := stack.Template().Resources["ConsumerPolicy"]
	require.NotNil(t, policy)
	assert.Equal(t, []any{"consumer"}, policy.Properties["Roles"])
}

func TestKafkaAPI_GrantIntrinsicArn(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	api := newAPI(t, stack, func(p *KafkaAPIProps) { p.ClusterArn = cfn.Ref("Cluster") })
	role, err := iam.NewRole(stack, "AppRole", iam.RoleProps{AssumedBy: "lambda.amazonaws.com"})
	require.NoError(t, err)

	_, err = api.GrantProduce("Produce", "orders", AuthenticationIAM, Principal{Grantee: role}, GrantOptions{})
	require.NoError(t, err)

	topicArn := role.Statements()[1].Resource[0].(map[string]any)
	sub := topicArn["Fn::Sub"].([]any)
	assert.Equal(t, "arn:${Partition}:kafka:${Region}:${Account}:topic/${ClusterName}/${ClusterUuid}/orders", sub[0])
	vars := sub[1].(map[string]any)
	assert.Equal(t, cfn.Select(3, cfn.Split(":", cfn.Ref("Cluster"))), vars["Region"])
	assert.Equal(t, cfn.Select(2, cfn.Split("/", cfn.Ref("Cluster"))), vars["ClusterUuid"])
}

func TestKafkaAPI_GrantMTLS(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	api := newAPI(t, stack, mtlsProps)

	produce, err := api.GrantProduce("Producer", "orders", AuthenticationMTLS, Principal{DistinguishedName: "CN=producer"}, GrantOptions{})
	require.NoError(t, err)
	require.Len(t, produce, 1)
	assert.Equal(t, "ProducerWrite", produce[0].LogicalID())

	consume, err := api.GrantConsume("Consumer", "orders", AuthenticationMTLS, Principal{DistinguishedName: "CN=consumer"}, GrantOptions{
		Host:                         "10.1.0.10",
		CustomResourceAuthentication: AuthenticationMTLS,
	})
	require.NoError(t, err)
	require.Len(t, consume, 2)
	assert.Equal(t, "ConsumerRead", consume[0].LogicalID())
	assert.Equal(t, "ConsumerGroup", consume[1].LogicalID())

	acls := api.ACLs()
	require.Len(t, acls, 3)
	assert.Equal(t, AclOperationWrite, acls[0].Operation)
	assert.Equal(t, "User:CN=producer", acls[0].Principal)
	assert.Equal(t, AnyHost, acls[0].Host)
	assert.Equal(t, AclResourceGroup, acls[2].ResourceType)
	assert.Equal(t, "*", acls[2].ResourceName)
	assert.Equal(t, "10.1.0.10", acls[2].Host)

	_, err = api.GrantProduce("Both", "orders", AuthenticationMTLS, Principal{DistinguishedName: "CN=x", Grantee: &iam.ImportedRole{}}, GrantOptions{})
	assert.ErrorIs(t, err, ErrPrincipalMismatch)
	_, err = api.GrantProduce("ViaIam", "orders", AuthenticationMTLS, Principal{DistinguishedName: "CN=x"}, GrantOptions{CustomResourceAuthentication: AuthenticationIAM})
	assert.ErrorIs(t, err, ErrACLNotSupported)

	require.NoError(t, stack.Validate())
}

func TestKafkaAPI_ServerlessOnlyIAM(t *testing.T) {
	t.Parallel()
	api := newAPI(t, newStack(t), func(p *KafkaAPIProps) { p.ClusterType = ClusterTypeServerless })
	_, err := api.provider(AuthenticationMTLS)
	assert.ErrorIs(t, err, ErrUnsupportedAuth)
	_, err = api.provider(AuthenticationIAM)
	assert.NoError(t, err)
}

func TestParseClusterArn(t *testing.T) {
	t.Parallel()
	parts, err := ParseClusterArn(testClusterArn)
	require.NoError(t, err)
	assert.Equal(t, ClusterArnParts{
		Partition: "aws",
		Region:    "eu-west-1",
		Account:   "123456789012",
		Name:      "orders",
		UUID:      "0b5c1f2e-1111-2222-3333-444455556666-3",
	}, parts)

	for _, bad := range []string{
		"",
		"arn:aws:s3:::bucket",
		"arn:aws:kafka:eu-west-1:123456789012:cluster/orders",
		"arn:aws:kafka:eu-west-1:123456789012:topic/orders/uuid",
	} {
		_, err := ParseClusterArn(bad)
		assert.Error(t, err, bad)
	}
}
