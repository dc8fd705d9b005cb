package iam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/mskstack/pkg/cfn"
)

// Grantable is something that can be granted permissions by adding
// statements to its identity policy.
type Grantable interface {
	AddToPrincipalPolicy(s Statement) error
	PrincipalName() string
}

// RoleProps configures NewRole.
type RoleProps struct {
	// AssumedBy is the service principal allowed to assume the role.
	AssumedBy string
	// ManagedPolicyArns are attached as-is; entries are strings or intrinsics.
	ManagedPolicyArns []any
	Description       string
	// RoleName fixes the physical name. Empty lets CloudFormation generate one.
	RoleName string
}

// Role is an IAM role declared in the stack.
type Role struct {
	resource *cfn.Resource
	policy   *PolicyDocument
}

// NewRole declares an AWS::IAM::Role. Statements added through
// AddToPrincipalPolicy are rendered into an inline DefaultPolicy; no inline
// policy is emitted while there are none.
func NewRole(stack *cfn.Stack, id string, props RoleProps) (*Role, error) {
	if props.AssumedBy == "" {
		return nil, errors.New("role requires an assuming service principal")
	}
	trust := NewPolicyDocument(Statement{
		Effect:    EffectAllow,
		Principal: ServicePrincipal(props.AssumedBy),
		Action:    []string{"sts:AssumeRole"},
	})

	role := &Role{policy: NewPolicyDocument()}
	r := cfn.NewResource("AWS::IAM::Role", map[string]any{
		"AssumeRolePolicyDocument": trust.Value(),
		"Policies": cfn.Lazy(func() any {
			if role.policy.IsEmpty() {
				return nil
			}
			return []any{map[string]any{
				"PolicyName":     "DefaultPolicy",
				"PolicyDocument": role.policy.Value(),
			}}
		}),
	})
	if len(props.ManagedPolicyArns) > 0 {
		r.Set("ManagedPolicyArns", append([]any(nil), props.ManagedPolicyArns...))
	}
	if props.Description != "" {
		r.Set("Description", props.Description)
	}
	if props.RoleName != "" {
		r.Set("RoleName", props.RoleName)
	}
	if _, err := stack.Add(id, r); err != nil {
		return nil, fmt.Errorf("failed to add role: %w", err)
	}
	role.resource = r
	return role, nil
}

// AddToPrincipalPolicy appends a statement to the role's inline policy.
func (r *Role) AddToPrincipalPolicy(s Statement) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.policy.AddStatements(s)
	return nil
}

// PrincipalName returns the role's logical ID.
func (r *Role) PrincipalName() string { return r.resource.LogicalID() }

// LogicalID returns the role's logical ID.
func (r *Role) LogicalID() string { return r.resource.LogicalID() }

// Ref returns the role name.
func (r *Role) Ref() map[string]any { return r.resource.Ref() }

// Arn returns the role ARN.
func (r *Role) Arn() map[string]any { return r.resource.GetAtt("Arn") }

// Statements returns the statements currently on the inline policy.
func (r *Role) Statements() []Statement {
	return append([]Statement(nil), r.policy.Statement...)
}

// ImportedRole is a role defined outside the stack. Granted statements are
// attached through a stand-alone AWS::IAM::Policy created on first use.
type ImportedRole struct {
	stack    *cfn.Stack
	id       string
	roleName string
	policy   *PolicyDocument
	resource *cfn.Resource
}

// RoleFromName references an existing role by name.
func RoleFromName(stack *cfn.Stack, id, roleName string) (*ImportedRole, error) {
	if roleName == "" {
		return nil, errors.New("role name must not be empty")
	}
	return &ImportedRole{stack: stack, id: id, roleName: roleName, policy: NewPolicyDocument()}, nil
}

// RoleFromArn references an existing role by ARN. The role name is the last
// path segment of the ARN.
func RoleFromArn(stack *cfn.Stack, id, roleArn string) (*ImportedRole, error) {
	_, resource, ok := strings.Cut(roleArn, ":role/")
	if !ok || !strings.HasPrefix(roleArn, "arn:") {
		return nil, fmt.Errorf("invalid role ARN %q", roleArn)
	}
	name := resource[strings.LastIndex(resource, "/")+1:]
	return RoleFromName(stack, id, name)
}

// AddToPrincipalPolicy appends a statement to the imported role's attached policy.
func (r *ImportedRole) AddToPrincipalPolicy(s Statement) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if r.resource == nil {
		res := cfn.NewResource("AWS::IAM::Policy", map[string]any{
			"PolicyName": cfn.LogicalID(r.id, "Policy"),
			"Roles":      []any{r.roleName},
			"PolicyDocument": cfn.Lazy(func() any {
				return r.policy.Value()
			}),
		})
		if _, err := r.stack.Add(cfn.LogicalID(r.id, "Policy"), res); err != nil {
			return fmt.Errorf("failed to add policy for role %s: %w", r.roleName, err)
		}
		r.resource = res
	}
	r.policy.AddStatements(s)
	return nil
}

// PrincipalName returns the role name.
func (r *ImportedRole) PrincipalName() string { return r.roleName }

// Statements returns the statements granted to the imported role.
func (r *ImportedRole) Statements() []Statement {
	return append([]Statement(nil), r.policy.Statement...)
}
