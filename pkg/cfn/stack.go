package cfn

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
)

// TemplateFormatVersion is the only template format version CloudFormation accepts.
const TemplateFormatVersion = "2010-09-09"

var (
	// ErrDuplicateLogicalID is returned when a logical ID is already used in the stack.
	ErrDuplicateLogicalID = errors.New("duplicate logical ID")
	// ErrInvalidLogicalID is returned for logical IDs that are not alphanumeric.
	ErrInvalidLogicalID = errors.New("invalid logical ID")
)

var stackNameRegex = regexp.MustCompile(`^[A-Za-z][-A-Za-z0-9]{0,127}$`)

// Env pins a stack to an account and region. Empty fields mean the stack
// is environment-agnostic and pseudo parameters are used instead.
type Env struct {
	Account string
	Region  string
}

// Parameter is a template parameter.
type Parameter struct {
	Type          string   `json:"Type"`
	Default       any      `json:"Default,omitempty"`
	Description   string   `json:"Description,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty"`
	NoEcho        bool     `json:"NoEcho,omitempty"`
}

// Output is a template output.
type Output struct {
	Value       any     `json:"Value"`
	Description string  `json:"Description,omitempty"`
	Export      *Export `json:"Export,omitempty"`
}

// Export names an exported output.
type Export struct {
	Name any `json:"Name"`
}

// Stack is a set of resources deployed together.
type Stack struct {
	Name        string
	Description string
	Env         Env
	Tags        map[string]string

	resources  map[string]*Resource
	order      []string
	parameters map[string]Parameter
	outputs    map[string]Output
}

// NewStack creates an empty stack. The name must be a valid CloudFormation
// stack name.
func NewStack(name string, env Env) (*Stack, error) {
	if !stackNameRegex.MatchString(name) {
		return nil, fmt.Errorf("invalid stack name %q: must start with a letter and contain only alphanumerics and hyphens (max 128)", name)
	}
	return &Stack{
		Name:       name,
		Env:        env,
		Tags:       make(map[string]string),
		resources:  make(map[string]*Resource),
		parameters: make(map[string]Parameter),
		outputs:    make(map[string]Output),
	}, nil
}

// Add adds a resource under logicalID.
func (s *Stack) Add(logicalID string, r *Resource) (*Resource, error) {
	if err := s.claim(logicalID); err != nil {
		return nil, err
	}
	r.logicalID = logicalID
	s.resources[logicalID] = r
	s.order = append(s.order, logicalID)
	return r, nil
}

// claim checks that logicalID is valid and unused across resources,
// parameters and outputs.
func (s *Stack) claim(logicalID string) error {
	if !ValidLogicalID(logicalID) {
		return fmt.Errorf("%w: %q", ErrInvalidLogicalID, logicalID)
	}
	_, r := s.resources[logicalID]
	_, p := s.parameters[logicalID]
	_, o := s.outputs[logicalID]
	if r || p || o {
		return fmt.Errorf("%w: %q", ErrDuplicateLogicalID, logicalID)
	}
	return nil
}

// Resource returns the resource added under logicalID.
func (s *Stack) Resource(logicalID string) (*Resource, bool) {
	r, ok := s.resources[logicalID]
	return r, ok
}

// LogicalIDs returns resource logical IDs in insertion order.
func (s *Stack) LogicalIDs() []string {
	return slices.Clone(s.order)
}

// ResourcesOfType returns the logical IDs of resources of the given type,
// in insertion order.
func (s *Stack) ResourcesOfType(resourceType string) []string {
	var ids []string
	for _, id := range s.order {
		if s.resources[id].Type == resourceType {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddParameter adds a template parameter.
func (s *Stack) AddParameter(logicalID string, p Parameter) error {
	if err := s.claim(logicalID); err != nil {
		return err
	}
	s.parameters[logicalID] = p
	return nil
}

// AddOutput adds a template output.
func (s *Stack) AddOutput(logicalID string, o Output) error {
	if err := s.claim(logicalID); err != nil {
		return err
	}
	s.outputs[logicalID] = o
	return nil
}

// Outputs returns the names of all outputs, sorted.
func (s *Stack) Outputs() []string {
	return slices.Sorted(maps.Keys(s.outputs))
}

// RegionValue returns the stack region if pinned, otherwise AWS::Region.
func (s *Stack) RegionValue() any {
	if s.Env.Region != "" {
		return s.Env.Region
	}
	return Region()
}

// AccountValue returns the stack account if pinned, otherwise AWS::AccountId.
func (s *Stack) AccountValue() any {
	if s.Env.Account != "" {
		return s.Env.Account
	}
	return AccountID()
}

// Template is a rendered template document.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
	Description              string               `json:"Description,omitempty"`
	Parameters               map[string]Parameter `json:"Parameters,omitempty"`
	Resources                map[string]*Resource `json:"Resources"`
	Outputs                  map[string]Output    `json:"Outputs,omitempty"`
}

// Template builds the template document, evaluating lazy values.
// The stack is left untouched so it can be rendered more than once.
func (s *Stack) Template() *Template {
	t := &Template{
		AWSTemplateFormatVersion: TemplateFormatVersion,
		Description:              s.Description,
		Resources:                make(map[string]*Resource, len(s.resources)),
	}
	if len(s.parameters) > 0 {
		t.Parameters = maps.Clone(s.parameters)
	}
	for id, r := range s.resources {
		out := *r
		if props, ok := resolve(r.Properties).(map[string]any); ok {
			out.Properties = props
		}
		out.DependsOn = slices.Clone(r.DependsOn)
		slices.Sort(out.DependsOn)
		t.Resources[id] = &out
	}
	if len(s.outputs) > 0 {
		t.Outputs = make(map[string]Output, len(s.outputs))
		for k, o := range s.outputs {
			o.Value = resolve(o.Value)
			t.Outputs[k] = o
		}
	}
	return t
}

// resolve deep-copies v, evaluating Lazy values and dropping nil map entries.
func resolve(v any) any {
	switch val := v.(type) {
	case Lazy:
		return resolve(val())
	case map[string]any:
		if val == nil {
			return nil
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			if r := resolve(item); r != nil {
				out[k] = r
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if r := resolve(item); r != nil {
				out = append(out, r)
			}
		}
		return out
	default:
		return v
	}
}
