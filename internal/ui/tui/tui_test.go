package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/platform/kafka"
	"github.com/imamik/mskstack/pkg/msk"
)

var testResources = map[string]string{
	"MskVpc":             "AWS::EC2::VPC",
	"MskCluster":         "AWS::MSK::Cluster",
	"MskKafkaApiHandler": "AWS::Lambda::Function",
	"MskTopicOrders":     "Custom::MskTopic",
}

func event(id, resourceType, status string, at time.Time) awsplatform.StackEvent {
	return awsplatform.StackEvent{
		ID:           id + status,
		Timestamp:    at,
		LogicalID:    id,
		ResourceType: resourceType,
		Status:       status,
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		status string
		want   ResourceState
	}{
		{"", StatePending},
		{"CREATE_IN_PROGRESS", StateActive},
		{"CREATE_COMPLETE", StateDone},
		{"UPDATE_COMPLETE", StateDone},
		{"DELETE_COMPLETE", StateDone},
		{"CREATE_FAILED", StateFailed},
		{"UPDATE_ROLLBACK_IN_PROGRESS", StateRollingBack},
		{"ROLLBACK_COMPLETE", StateRollingBack},
	}
	for _, tt := range tests {
		if got := stateOf(tt.status); got != tt.want {
			t.Errorf("stateOf(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNewDeployModel_OrdersByStage(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)

	var ids []string
	for _, r := range m.Resources {
		ids = append(ids, r.LogicalID)
	}
	want := []string{"MskVpc", "MskCluster", "MskKafkaApiHandler", "MskTopicOrders"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, ids)
	}
}

func TestApplyEvent(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	start := time.Now().Add(-time.Minute)

	m.applyEvent(event("MskVpc", "AWS::EC2::VPC", "CREATE_IN_PROGRESS", start))
	r := m.Resources[m.index["MskVpc"]]
	if r.State() != StateActive {
		t.Errorf("expected vpc to be active, got %v", r.State())
	}
	if !r.StartedAt.Equal(start) {
		t.Errorf("expected start time %v, got %v", start, r.StartedAt)
	}

	m.applyEvent(event("MskVpc", "AWS::EC2::VPC", "CREATE_COMPLETE", start.Add(15*time.Second)))
	r = m.Resources[m.index["MskVpc"]]
	if r.State() != StateDone {
		t.Errorf("expected vpc to be done, got %v", r.State())
	}
	if r.EndedAt.Sub(r.StartedAt) != 15*time.Second {
		t.Errorf("expected 15s duration, got %v", r.EndedAt.Sub(r.StartedAt))
	}
}

func TestApplyEvent_StackStatus(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	m.applyEvent(event("orders-kafka", "AWS::CloudFormation::Stack", "CREATE_IN_PROGRESS", time.Now()))

	if m.StackStatus != "CREATE_IN_PROGRESS" {
		t.Errorf("expected stack status, got %q", m.StackStatus)
	}
	if len(m.Resources) != len(testResources) {
		t.Errorf("stack events must not add resources, got %d", len(m.Resources))
	}
}

func TestApplyEvent_Failure(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	e := event("MskTopicOrders", "Custom::MskTopic", "CREATE_FAILED", time.Now())
	e.Reason = "topic already exists"
	m.applyEvent(e)

	if len(m.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(m.Failures))
	}
	if m.Resources[m.index["MskTopicOrders"]].Reason != "topic already exists" {
		t.Error("expected failure reason on the resource")
	}
}

func TestApplyEvent_UnknownResource(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	m.applyEvent(event("MskTopicLegacy", "Custom::MskTopic", "DELETE_IN_PROGRESS", time.Now()))

	if len(m.Resources) != len(testResources)+1 {
		t.Fatalf("expected removed resource to be tracked, got %d resources", len(m.Resources))
	}
}

func TestCalculateProgress(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	if p := calculateProgress(m); p != 0 {
		t.Errorf("expected 0, got %v", p)
	}

	now := time.Now()
	m.applyEvent(event("MskVpc", "AWS::EC2::VPC", "CREATE_COMPLETE", now))
	if p := calculateProgress(m); p != 0.25 {
		t.Errorf("expected 0.25, got %v", p)
	}

	m.Done = true
	if p := calculateProgress(m); p != 1.0 {
		t.Errorf("expected 1.0, got %v", p)
	}
}

func TestCalculateProgress_UpdateCountsReportedOnly(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	now := time.Now()
	m.applyEvent(event("orders-kafka", "AWS::CloudFormation::Stack", "UPDATE_IN_PROGRESS", now))
	m.applyEvent(event("MskTopicOrders", "Custom::MskTopic", "UPDATE_IN_PROGRESS", now))

	if p := calculateProgress(m); p != 0 {
		t.Errorf("expected 0, got %v", p)
	}
	m.applyEvent(event("MskTopicOrders", "Custom::MskTopic", "UPDATE_COMPLETE", now))
	if p := calculateProgress(m); p != 0.99 {
		t.Errorf("expected 0.99, got %v", p)
	}
}

func TestModelUpdate_Done(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	result := &awsplatform.DeployResult{Operation: awsplatform.OperationCreate, Outputs: map[string]string{"MskClusterArn": "arn:aws:kafka:eu-west-1:123456789012:cluster/orders/abc"}}

	updated, cmd := m.Update(DeployDoneMsg{Result: result})
	fm := updated.(Model)
	if !fm.Done {
		t.Error("expected done")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	view := fm.View()
	if !strings.Contains(view, "Complete") {
		t.Errorf("expected Complete in view: %s", view)
	}
	if !strings.Contains(view, "MskClusterArn") {
		t.Errorf("expected outputs in view: %s", view)
	}
}

func TestModelUpdate_Error(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	updated, cmd := m.Update(ErrMsg{Err: errors.New("stack create failed")})
	fm := updated.(Model)
	if fm.Err == nil {
		t.Error("expected error")
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if !strings.Contains(fm.View(), "stack create failed") {
		t.Error("expected error in view")
	}
}

func TestModelUpdate_Quit(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestModelUpdate_Tick(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	updated, cmd := m.Update(TickMsg{})
	fm := updated.(Model)
	if fm.SpinnerFrame != 1 {
		t.Errorf("expected spinner frame 1, got %d", fm.SpinnerFrame)
	}
	if fm.EstimatedRemaining <= 0 {
		t.Error("expected an ETA before anything started")
	}
	if cmd == nil {
		t.Error("expected next tick")
	}
}

func TestRenderView_Sections(t *testing.T) {
	m := NewDeployModel("orders-kafka", "eu-west-1", testResources)
	view := renderView(m)

	for _, want := range []string{"mskstack deploy: orders-kafka (eu-west-1)", "Network & IAM", "Cluster", "Kafka", "MskTopicOrders", "pending"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestRenderView_Destroy(t *testing.T) {
	m := NewDestroyModel("orders-kafka", "eu-west-1", testResources)
	m.applyEvent(event("MskTopicOrders", "Custom::MskTopic", "DELETE_COMPLETE", time.Now()))

	view := renderView(m)
	if !strings.Contains(view, "mskstack destroy") {
		t.Errorf("expected destroy title: %s", view)
	}
	if !strings.Contains(view, "DELETE_COMPLETE") {
		t.Errorf("expected event status: %s", view)
	}
}

func TestCurrentSpinner(t *testing.T) {
	if currentSpinner(0) == currentSpinner(1) {
		t.Error("expected spinner to advance")
	}
	if currentSpinner(-1) != currentSpinner(1) {
		t.Error("expected negative frames to mirror")
	}
}

func TestDoctorStatus_Healthy(t *testing.T) {
	s := DoctorStatus{
		StackName: "orders-kafka",
		Checks: []Check{
			{Name: "stack", OK: true},
			{Name: "kafka", Skipped: true, Detail: "no declared topics"},
		},
	}
	if !s.Healthy() {
		t.Error("expected healthy")
	}

	s.Drift = &kafka.Report{Topics: 1, MissingTopics: []string{"orders"}}
	if s.Healthy() {
		t.Error("expected drift to be unhealthy")
	}

	s.Drift = nil
	s.Checks = append(s.Checks, Check{Name: "cluster", Detail: "cluster is UPDATING"})
	if s.Healthy() {
		t.Error("expected failed check to be unhealthy")
	}
}

func TestRenderDoctor(t *testing.T) {
	s := DoctorStatus{
		StackName: "orders-kafka",
		Region:    "eu-west-1",
		Checks: []Check{
			{Name: "stack", OK: true, Detail: "CREATE_COMPLETE"},
			{Name: "cluster", OK: true, Detail: "ACTIVE"},
		},
		Drift: &kafka.Report{
			Topics:      2,
			ACLs:        1,
			MissingACLs: []msk.Acl{{ResourceName: "orders", Principal: "User:CN=checkout"}},
		},
	}

	out := RenderDoctor(s)
	for _, want := range []string{"mskstack doctor: orders-kafka (eu-west-1)", "Problems found", "CREATE_COMPLETE", "2 topics and 1 ACLs declared", "is missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderDoctor_Clean(t *testing.T) {
	s := DoctorStatus{
		StackName: "orders-kafka",
		Checks:    []Check{{Name: "stack", OK: true}},
		Drift:     &kafka.Report{Topics: 1},
	}
	out := RenderDoctor(s)
	if !strings.Contains(out, "Healthy") || !strings.Contains(out, "cluster matches the declared resources") {
		t.Errorf("expected healthy output:\n%s", out)
	}
}
