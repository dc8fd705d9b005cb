// Package iam declares IAM roles and policy documents on a cfn.Stack.
package iam

import (
	"errors"
	"fmt"

	"github.com/imamik/mskstack/pkg/cfn"
)

// PolicyVersion is the IAM policy language version.
const PolicyVersion = "2012-10-17"

// Effect is the effect of a policy statement.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Principal identifies who a statement applies to in resource and trust policies.
// Keys are principal kinds (Service, AWS, Federated); values are strings or
// intrinsics.
type Principal map[string]any

// ServicePrincipal returns a principal for an AWS service such as lambda.amazonaws.com.
func ServicePrincipal(service string) Principal {
	return Principal{"Service": service}
}

// ArnPrincipal returns a principal for an IAM ARN.
func ArnPrincipal(arn any) Principal {
	return Principal{"AWS": arn}
}

// AccountRootPrincipal returns the root principal of the stack's account.
func AccountRootPrincipal() Principal {
	return Principal{"AWS": cfn.Sub("arn:${AWS::Partition}:iam::${AWS::AccountId}:root")}
}

// Statement is a single policy statement. Resource entries are strings or intrinsics.
type Statement struct {
	Sid       string         `json:"Sid,omitempty" yaml:"sid,omitempty"`
	Effect    Effect         `json:"Effect" yaml:"effect"`
	Principal Principal      `json:"Principal,omitempty" yaml:"principal,omitempty"`
	Action    []string       `json:"Action" yaml:"action"`
	Resource  []any          `json:"Resource,omitempty" yaml:"resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty" yaml:"condition,omitempty"`
}

// Allow returns an Allow statement for actions on resources.
func Allow(actions []string, resources ...any) Statement {
	return Statement{Effect: EffectAllow, Action: actions, Resource: resources}
}

// Validate checks the statement has an effect and at least one action.
func (s Statement) Validate() error {
	if s.Effect != EffectAllow && s.Effect != EffectDeny {
		return fmt.Errorf("invalid effect %q: must be Allow or Deny", s.Effect)
	}
	if len(s.Action) == 0 {
		return errors.New("statement must have at least one action")
	}
	return nil
}

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Version   string      `json:"Version" yaml:"version"`
	Statement []Statement `json:"Statement" yaml:"statement"`
}

// NewPolicyDocument creates a document with the given statements.
func NewPolicyDocument(statements ...Statement) *PolicyDocument {
	return &PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// AddStatements appends statements to the document.
func (d *PolicyDocument) AddStatements(statements ...Statement) {
	if d.Version == "" {
		d.Version = PolicyVersion
	}
	d.Statement = append(d.Statement, statements...)
}

// IsEmpty reports whether the document has no statements.
func (d *PolicyDocument) IsEmpty() bool {
	return d == nil || len(d.Statement) == 0
}

// Validate checks every statement in the document.
func (d *PolicyDocument) Validate() error {
	if d.IsEmpty() {
		return errors.New("policy document has no statements")
	}
	var errs []error
	for i, s := range d.Statement {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("statement %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Value returns the document as a template property value.
func (d *PolicyDocument) Value() map[string]any {
	statements := make([]any, 0, len(d.Statement))
	for _, s := range d.Statement {
		m := map[string]any{
			"Effect": string(s.Effect),
			"Action": stringsToAny(s.Action),
		}
		if s.Sid != "" {
			m["Sid"] = s.Sid
		}
		if len(s.Principal) > 0 {
			m["Principal"] = map[string]any(s.Principal)
		}
		if len(s.Resource) > 0 {
			m["Resource"] = append([]any(nil), s.Resource...)
		}
		if len(s.Condition) > 0 {
			m["Condition"] = s.Condition
		}
		statements = append(statements, m)
	}
	version := d.Version
	if version == "" {
		version = PolicyVersion
	}
	return map[string]any{"Version": version, "Statement": statements}
}

// ManagedPolicyArn returns the ARN of an AWS managed policy such as
// service-role/AWSLambdaBasicExecutionRole.
func ManagedPolicyArn(name string) map[string]any {
	return cfn.Sub("arn:${AWS::Partition}:iam::aws:policy/" + name)
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
