package tui

import (
	"errors"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/ui/benchmarks"
)

// ErrDetached is returned when the user stops watching a running stack
// operation. CloudFormation carries on without the CLI.
var ErrDetached = errors.New("stopped watching: the stack operation continues in CloudFormation")

// ResourceState is the display state of a resource.
type ResourceState int

const (
	// StatePending means no event has been seen for the resource.
	StatePending ResourceState = iota
	// StateActive means an operation on the resource is in progress.
	StateActive
	// StateDone means the last operation completed.
	StateDone
	// StateFailed means the last operation failed.
	StateFailed
	// StateRollingBack means the resource is being rolled back.
	StateRollingBack
)

// stateOf maps a CloudFormation resource status to a display state.
func stateOf(status string) ResourceState {
	switch {
	case status == "":
		return StatePending
	case strings.HasSuffix(status, "_FAILED"):
		return StateFailed
	case strings.Contains(status, "ROLLBACK"):
		return StateRollingBack
	case strings.HasSuffix(status, "_IN_PROGRESS"):
		return StateActive
	default:
		return StateDone
	}
}

// Resource is one template resource as shown in the view.
type Resource struct {
	LogicalID string
	Type      string
	Status    string
	Reason    string
	StartedAt time.Time
	EndedAt   time.Time
}

// State returns the display state of the resource.
func (r Resource) State() ResourceState { return stateOf(r.Status) }

// Model is the Bubble Tea model for the deploy view.
type Model struct {
	// Stack info
	StackName string
	Region    string
	Operation string // "deploy", "destroy"

	// Stack-level status from the stack's own events
	StackStatus string

	// Resources in display order
	Resources []Resource
	index     map[string]int

	// Failed events, oldest first
	Failures []awsplatform.StackEvent

	Result *awsplatform.DeployResult

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool
}

// NewDeployModel creates a model for a deploy of the given resources,
// keyed by logical ID with their resource type as value.
func NewDeployModel(stackName, region string, resources map[string]string) Model {
	return newModel(stackName, region, "deploy", resources)
}

// NewDestroyModel creates a model for deleting a stack.
func NewDestroyModel(stackName, region string, resources map[string]string) Model {
	return newModel(stackName, region, "destroy", resources)
}

func newModel(stackName, region, operation string, resources map[string]string) Model {
	m := Model{
		StackName:        stackName,
		Region:           region,
		Operation:        operation,
		StartTime:        time.Now(),
		PerformanceScale: 1.0,
		index:            make(map[string]int, len(resources)),
	}
	ids := make([]string, 0, len(resources))
	for id := range resources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := benchmarks.StageOf(resources[ids[i]]), benchmarks.StageOf(resources[ids[j]])
		if si != sj {
			return si < sj
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		m.index[id] = len(m.Resources)
		m.Resources = append(m.Resources, Resource{LogicalID: id, Type: resources[id]})
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StackEventMsg:
		m.applyEvent(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DeployDoneMsg:
		m.Result = msg.Result
		m.Done = true
		m.EstimatedRemaining = 0
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(e awsplatform.StackEvent) {
	if e.ResourceType == "AWS::CloudFormation::Stack" && e.LogicalID == m.StackName {
		m.StackStatus = e.Status
		return
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}

	idx, ok := m.index[e.LogicalID]
	if !ok {
		// Resources dropped from the template still report their deletion.
		idx = len(m.Resources)
		m.index[e.LogicalID] = idx
		m.Resources = append(m.Resources, Resource{LogicalID: e.LogicalID, Type: e.ResourceType})
	}

	r := &m.Resources[idx]
	r.Status = e.Status
	r.Reason = e.Reason
	switch r.State() {
	case StateActive, StateRollingBack:
		if r.StartedAt.IsZero() || !r.EndedAt.IsZero() {
			r.StartedAt = e.Timestamp
			r.EndedAt = time.Time{}
		}
	case StateDone, StateFailed:
		if r.StartedAt.IsZero() {
			r.StartedAt = e.Timestamp
		}
		r.EndedAt = e.Timestamp
	}
	if e.Failed() {
		m.Failures = append(m.Failures, e)
	}
}

func (m *Model) records() []benchmarks.Record {
	records := make([]benchmarks.Record, 0, len(m.Resources))
	for _, r := range m.Resources {
		records = append(records, benchmarks.Record{
			ResourceType: r.Type,
			StartedAt:    r.StartedAt,
			EndedAt:      r.EndedAt,
		})
	}
	return records
}

func (m *Model) updateETA() {
	if m.Done || m.Operation != "deploy" {
		m.EstimatedRemaining = 0
		return
	}
	now := time.Now()
	records := m.records()
	if strings.HasPrefix(m.StackStatus, "UPDATE") {
		// Unchanged resources never report during an update.
		started := records[:0]
		for _, r := range records {
			if !r.StartedAt.IsZero() {
				started = append(started, r)
			}
		}
		records = started
	}
	m.PerformanceScale = benchmarks.PerformanceScale(records, now)
	m.EstimatedRemaining = benchmarks.EstimateRemainingWithScale(records, now, m.PerformanceScale)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
