package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/mskstack/pkg/cfn"
)

func newStack(t *testing.T) *cfn.Stack {
	t.Helper()
	s, err := cfn.NewStack("iam-test", cfn.Env{})
	require.NoError(t, err)
	return s
}

func TestNewRole_NoInlinePolicyUntilGranted(t *testing.T) {
	t.Parallel()
	stack := newStack(t)

	role, err := NewRole(stack, "HandlerRole", RoleProps{
		AssumedBy:         "lambda.amazonaws.com",
		ManagedPolicyArns: []any{ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole")},
	})
	require.NoError(t, err)

	props := stack.Template().Resources["HandlerRole"].Properties
	assert.NotContains(t, props, "Policies")
	trust := props["AssumeRolePolicyDocument"].(map[string]any)
	assert.Equal(t, PolicyVersion, trust["Version"])

	require.NoError(t, role.AddToPrincipalPolicy(Allow([]string{"kafka:DescribeCluster"}, "*")))

	props = stack.Template().Resources["HandlerRole"].Properties
	policies := props["Policies"].([]any)
	require.Len(t, policies, 1)
	doc := policies[0].(map[string]any)["PolicyDocument"].(map[string]any)
	stmt := doc["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"kafka:DescribeCluster"}, stmt["Action"])
	assert.Equal(t, []any{"*"}, stmt["Resource"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"HandlerRole", "Arn"}}, role.Arn())
}

func TestNewRole_Errors(t *testing.T) {
	t.Parallel()
	stack := newStack(t)
	_, err := NewRole(stack, "Role", RoleProps{})
	assert.Error(t, err)

	_, err = NewRole(stack, "Role", RoleProps{AssumedBy: "lambda.amazonaws.com"})
	require.NoError(t, err)
	_, err = NewRole(stack, "Role", RoleProps{AssumedBy: "lambda.amazonaws.com"})
	assert.ErrorIs(t, err, cfn.ErrDuplicateLogicalID)
}

func TestRole_RejectsInvalidStatement(t *testing.T) {
	t.Parallel()
	role, err := NewRole(newStack(t), "Role", RoleProps{AssumedBy: "lambda.amazonaws.com"})
	require.NoError(t, err)
	assert.Error(t, role.AddToPrincipalPolicy(Statement{Effect: EffectAllow}))
	assert.Error(t, role.AddToPrincipalPolicy(Statement{Effect: "Maybe", Action: []string{"s3:*"}}))
	assert.Empty(t, role.Statements())
}

func TestImportedRole(t *testing.T) {
	t.Parallel()
	stack := newStack(t)

	role, err := RoleFromArn(stack, "Consumer", "arn:aws:iam::123456789012:role/team/orders-consumer")
	require.NoError(t, err)
	assert.Equal(t, "orders-consumer", role.PrincipalName())
	assert.Empty(t, stack.ResourcesOfType("AWS::IAM::Policy"), "policy is created on first grant")

	require.NoError(t, role.AddToPrincipalPolicy(Allow([]string{"kafka-cluster:Connect"}, "arn:cluster")))
	require.NoError(t, role.AddToPrincipalPolicy(Allow([]string{"kafka-cluster:ReadData"}, "arn:topic")))

	ids := stack.ResourcesOfType("AWS::IAM::Policy")
	require.Equal(t, []string{"ConsumerPolicy"}, ids)
	props := stack.Template().Resources["ConsumerPolicy"].Properties
	assert.Equal(t, []any{"orders-consumer"}, props["Roles"])
	doc := props["PolicyDocument"].(map[string]any)
	assert.Len(t, doc["Statement"], 2)

	_, err = RoleFromArn(stack, "Bad", "not-an-arn")
	assert.Error(t, err)
	_, err = RoleFromName(stack, "Empty", "")
	assert.Error(t, err)
}

func TestPolicyDocument(t *testing.T) {
	t.Parallel()
	var doc PolicyDocument
	assert.True(t, doc.IsEmpty())
	assert.Error(t, doc.Validate())

	doc.AddStatements(Statement{
		Sid:       "AllowAccount",
		Effect:    EffectAllow,
		Principal: AccountRootPrincipal(),
		Action:    []string{"kafka:CreateVpcConnection"},
	})
	assert.False(t, doc.IsEmpty())
	require.NoError(t, doc.Validate())

	v := doc.Value()
	assert.Equal(t, PolicyVersion, v["Version"])
	stmt := v["Statement"].([]any)[0].(map[string]any)
	assert.Equal(t, "AllowAccount", stmt["Sid"])
	assert.NotContains(t, stmt, "Resource")
	assert.Contains(t, stmt, "Principal")
}
