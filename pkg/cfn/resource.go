package cfn

import (
	"fmt"
	"slices"
	"strings"
)

// Resource is a single CloudFormation resource declaration.
type Resource struct {
	Type                string         `json:"Type"`
	Properties          map[string]any `json:"Properties,omitempty"`
	DependsOn           []string       `json:"DependsOn,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty"`
	Metadata            map[string]any `json:"Metadata,omitempty"`

	logicalID string
}

// NewResource creates a resource of the given type with properties.
func NewResource(resourceType string, properties map[string]any) *Resource {
	if properties == nil {
		properties = make(map[string]any)
	}
	return &Resource{Type: resourceType, Properties: properties}
}

// LogicalID returns the ID the resource was added under, or "" before it
// has been added to a stack.
func (r *Resource) LogicalID() string {
	return r.logicalID
}

// Ref returns a Ref to this resource.
func (r *Resource) Ref() map[string]any {
	return Ref(r.logicalID)
}

// GetAtt returns an Fn::GetAtt for an attribute of this resource.
func (r *Resource) GetAtt(attribute string) map[string]any {
	return GetAtt(r.logicalID, attribute)
}

// Set sets a property, replacing any previous value.
func (r *Resource) Set(name string, value any) *Resource {
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}
	r.Properties[name] = value
	return r
}

// AddDependency records DependsOn entries, ignoring duplicates and empty IDs.
func (r *Resource) AddDependency(logicalIDs ...string) *Resource {
	for _, id := range logicalIDs {
		if id == "" || id == r.logicalID || slices.Contains(r.DependsOn, id) {
			continue
		}
		r.DependsOn = append(r.DependsOn, id)
	}
	return r
}

// ApplyRemovalPolicy sets DeletionPolicy and UpdateReplacePolicy.
// An empty policy leaves the resource untouched.
func (r *Resource) ApplyRemovalPolicy(p RemovalPolicy) *Resource {
	switch p {
	case RemovalPolicyDestroy:
		r.DeletionPolicy, r.UpdateReplacePolicy = "Delete", "Delete"
	case RemovalPolicyRetain:
		r.DeletionPolicy, r.UpdateReplacePolicy = "Retain", "Retain"
	case RemovalPolicySnapshot:
		r.DeletionPolicy, r.UpdateReplacePolicy = "Snapshot", "Snapshot"
	}
	return r
}

// RemovalPolicy controls what happens to a resource when it leaves the stack.
type RemovalPolicy string

const (
	// RemovalPolicyDestroy deletes the physical resource.
	RemovalPolicyDestroy RemovalPolicy = "DESTROY"
	// RemovalPolicyRetain keeps the physical resource in the account.
	RemovalPolicyRetain RemovalPolicy = "RETAIN"
	// RemovalPolicySnapshot snapshots the resource before deleting it.
	// Only supported by resources with data (volumes, databases).
	RemovalPolicySnapshot RemovalPolicy = "SNAPSHOT"
)

// ValidRemovalPolicies returns all removal policies.
func ValidRemovalPolicies() []RemovalPolicy {
	return []RemovalPolicy{RemovalPolicyDestroy, RemovalPolicyRetain, RemovalPolicySnapshot}
}

// IsValid returns true if the removal policy is known.
func (p RemovalPolicy) IsValid() bool {
	return slices.Contains(ValidRemovalPolicies(), p)
}

// Or returns p, or fallback when p is empty.
func (p RemovalPolicy) Or(fallback RemovalPolicy) RemovalPolicy {
	if p == "" {
		return fallback
	}
	return p
}

// ParseRemovalPolicy parses a removal policy name case-insensitively.
// An empty string yields an empty policy.
func ParseRemovalPolicy(s string) (RemovalPolicy, error) {
	if s == "" {
		return "", nil
	}
	p := RemovalPolicy(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid removal policy %q: must be one of %v", s, ValidRemovalPolicies())
	}
	return p, nil
}
