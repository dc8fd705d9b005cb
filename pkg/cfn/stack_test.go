package cfn

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStack(t *testing.T) *Stack {
	t.Helper()
	s, err := NewStack("test-stack", Env{})
	require.NoError(t, err)
	return s
}

func TestNewStack_Name(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "msk", false},
		{"with hyphens", "my-msk-stack-1", false},
		{"leading digit", "1stack", true},
		{"underscore", "my_stack", true},
		{"empty", "", true},
		{"too long", "a" + strings.Repeat("b", 128), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewStack(tt.input, Env{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStack_Add(t *testing.T) {
	t.Parallel()
	s := newTestStack(t)

	r, err := s.Add("Bucket", NewResource("AWS::S3::Bucket", nil))
	require.NoError(t, err)
	assert.Equal(t, "Bucket", r.LogicalID())
	assert.Equal(t, map[string]any{"Ref": "Bucket"}, r.Ref())
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"Bucket", "Arn"}}, r.GetAtt("Arn"))

	_, err = s.Add("Bucket", NewResource("AWS::S3::Bucket", nil))
	assert.ErrorIs(t, err, ErrDuplicateLogicalID)

	_, err = s.Add("bad-id", NewResource("AWS::S3::Bucket", nil))
	assert.ErrorIs(t, err, ErrInvalidLogicalID)

	err = s.AddOutput("Bucket", Output{Value: r.Ref()})
	assert.ErrorIs(t, err, ErrDuplicateLogicalID)
}

func TestStack_InsertionOrder(t *testing.T) {
	t.Parallel()
	s := newTestStack(t)
	for _, id := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := s.Add(id, NewResource("AWS::SNS::Topic", nil))
		require.NoError(t, err)
	}
	_, err := s.Add("Queue", NewResource("AWS::SQS::Queue", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"Zeta", "Alpha", "Mid", "Queue"}, s.LogicalIDs())
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, s.ResourcesOfType("AWS::SNS::Topic"))
	assert.Empty(t, s.ResourcesOfType("AWS::Lambda::Function"))
}

func TestStack_Template_Lazy(t *testing.T) {
	t.Parallel()
	s := newTestStack(t)

	var statements []any
	r := NewResource("AWS::IAM::Role", map[string]any{
		"Policies": Lazy(func() any {
			if len(statements) == 0 {
				return nil
			}
			return []any{map[string]any{"Statement": statements}}
		}),
		"Nested": map[string]any{"Skip": nil, "Keep": "yes"},
	})
	_, err := s.Add("Role", r)
	require.NoError(t, err)

	tmpl := s.Template()
	props := tmpl.Resources["Role"].Properties
	assert.NotContains(t, props, "Policies")
	assert.Equal(t, map[string]any{"Keep": "yes"}, props["Nested"])

	statements = append(statements, "s1")
	tmpl = s.Template()
	assert.Equal(t, []any{map[string]any{"Statement": []any{"s1"}}}, tmpl.Resources["Role"].Properties["Policies"])

	// the stack itself keeps the lazy value
	_, isLazy := r.Properties["Policies"].(Lazy)
	assert.True(t, isLazy)
}

func TestStack_Template_DependsOnSorted(t *testing.T) {
	t.Parallel()
	s := newTestStack(t)
	for _, id := range []string{"A", "B", "C"} {
		_, err := s.Add(id, NewResource("AWS::SNS::Topic", nil))
		require.NoError(t, err)
	}
	r, _ := s.Resource("C")
	r.AddDependency("B", "A", "B", "C", "")

	assert.Equal(t, []string{"B", "A"}, r.DependsOn)
	assert.Equal(t, []string{"A", "B"}, s.Template().Resources["C"].DependsOn)
}

func TestStack_RegionAccountValue(t *testing.T) {
	t.Parallel()
	agnostic := newTestStack(t)
	assert.Equal(t, Region(), agnostic.RegionValue())
	assert.Equal(t, AccountID(), agnostic.AccountValue())

	pinned, err := NewStack("pinned", Env{Account: "123456789012", Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", pinned.RegionValue())
	assert.Equal(t, "123456789012", pinned.AccountValue())
}

func TestResource_ApplyRemovalPolicy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		policy RemovalPolicy
		want   string
	}{
		{RemovalPolicyDestroy, "Delete"},
		{RemovalPolicyRetain, "Retain"},
		{RemovalPolicySnapshot, "Snapshot"},
		{"", ""},
	}
	for _, tt := range tests {
		r := NewResource("AWS::Logs::LogGroup", nil).ApplyRemovalPolicy(tt.policy)
		assert.Equal(t, tt.want, r.DeletionPolicy, "policy %q", tt.policy)
		assert.Equal(t, tt.want, r.UpdateReplacePolicy, "policy %q", tt.policy)
	}
}

func TestParseRemovalPolicy(t *testing.T) {
	t.Parallel()
	p, err := ParseRemovalPolicy("retain")
	require.NoError(t, err)
	assert.Equal(t, RemovalPolicyRetain, p)

	p, err = ParseRemovalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RemovalPolicyDestroy, p.Or(RemovalPolicyDestroy))

	_, err = ParseRemovalPolicy("keep-forever")
	assert.Error(t, err)
}

func TestLogicalID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "MyClusterBrokerSg", LogicalID("my-cluster", "broker sg"))
	assert.Equal(t, "TopicOrders", LogicalID("Topic", "orders"))
	assert.Equal(t, "Resource", LogicalID("--", ""))
	assert.True(t, ValidLogicalID(LogicalID("a.b_c", "d/e")))

	long := LogicalID(strings.Repeat("x", 300))
	assert.Len(t, long, maxLogicalIDLength)
	assert.True(t, ValidLogicalID(long))
	assert.NotEqual(t, long, LogicalID(strings.Repeat("x", 301)))
}

func TestNameID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "TopicOrders", NameID("Topic", "orders"))
	assert.Equal(t, "TopicOrderEventsV2", NameID("Topic", "order-events-v2"))

	tests := []struct {
		name string
		a, b string
	}{
		{"separators", "orders.v1", "orders-v1"},
		{"underscore", "orders_v1", "orders-v1"},
		{"case", "Orders", "orders"},
		{"digit word", "orders-v-1", "orders-v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a, b := NameID("Topic", tt.a), NameID("Topic", tt.b)
			assert.NotEqual(t, a, b)
			assert.True(t, ValidLogicalID(a))
			assert.True(t, ValidLogicalID(b))
		})
	}

	assert.Equal(t, NameID("Topic", "orders.v1"), NameID("Topic", "orders.v1"))
	assert.Equal(t, "TopicOrdersV1"+Hash("orders.v1"), NameID("Topic", "orders.v1"))
	assert.NotEqual(t, Hash("ab", "c"), Hash("a", "bc"))
}

func TestRender(t *testing.T) {
	t.Parallel()
	s := newTestStack(t)
	s.Description = "test"
	_, err := s.Add("Topic", NewResource("AWS::SNS::Topic", map[string]any{"TopicName": "orders"}))
	require.NoError(t, err)
	require.NoError(t, s.AddOutput("TopicArn", Output{Value: Ref("Topic"), Export: &Export{Name: Sub("${AWS::StackName}-topic")}}))

	data, err := s.Render(FormatJSON)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, TemplateFormatVersion, doc["AWSTemplateFormatVersion"])
	assert.Contains(t, doc["Resources"], "Topic")

	yml, err := s.Render(FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(yml), "TopicName: orders")

	parsed, err := ParseTemplate(yml)
	require.NoError(t, err)
	assert.Equal(t, "AWS::SNS::Topic", parsed.Resources["Topic"].Type)
	assert.Equal(t, "test", parsed.Description)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("toml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	s := newTestStack(t)
	require.NoError(t, s.AddParameter("Env", Parameter{Type: "String", Default: "dev"}))
	_, err := s.Add("Topic", NewResource("AWS::SNS::Topic", map[string]any{
		"TopicName": Sub("${AWS::StackName}-${Env}"),
	}))
	require.NoError(t, err)
	_, err = s.Add("Sub", NewResource("AWS::SNS::Subscription", map[string]any{
		"TopicArn": Ref("Topic"),
		"Endpoint": SubWith("${Arn}/${Topic.TopicName}", map[string]any{"Arn": GetAtt("Topic", "TopicArn")}),
		"Region":   Region(),
	}))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	r, _ := s.Resource("Sub")
	r.Set("Missing", Ref("Nope"))
	r.Set("Att", GetAtt("Gone", "Arn"))
	r.AddDependency("Ghost")
	require.NoError(t, s.AddOutput("Bad", Output{Value: Sub("${Phantom.Arn}")}))

	err = s.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "unknown target Nope")
	assert.Contains(t, msg, "unknown target Gone")
	assert.Contains(t, msg, "unknown resource Ghost")
	assert.Contains(t, msg, "output Bad")
}

func TestIsIntrinsic(t *testing.T) {
	t.Parallel()
	assert.True(t, IsIntrinsic(Ref("X")))
	assert.True(t, IsIntrinsic(Join(",", "a", "b")))
	assert.False(t, IsIntrinsic("arn:aws:kafka:eu-west-1:1:cluster/a/b"))
	assert.False(t, IsIntrinsic(map[string]any{"Key": "v"}))
}
