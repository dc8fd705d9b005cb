package cfn

import "strings"

// Pseudo parameter names.
const (
	PseudoAccountID = "AWS::AccountId"
	PseudoRegion    = "AWS::Region"
	PseudoPartition = "AWS::Partition"
	PseudoStackName = "AWS::StackName"
	PseudoStackID   = "AWS::StackId"
	PseudoURLSuffix = "AWS::URLSuffix"
	PseudoNoValue   = "AWS::NoValue"
)

// Ref returns a Ref to a resource, parameter or pseudo parameter.
func Ref(logicalID string) map[string]any {
	return map[string]any{"Ref": logicalID}
}

// GetAtt returns an Fn::GetAtt for the attribute of a resource.
func GetAtt(logicalID, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{logicalID, attribute}}
}

// Sub returns an Fn::Sub over a template string.
func Sub(template string) map[string]any {
	return map[string]any{"Fn::Sub": template}
}

// SubWith returns an Fn::Sub with an explicit variable map.
func SubWith(template string, vars map[string]any) map[string]any {
	return map[string]any{"Fn::Sub": []any{template, vars}}
}

// Join returns an Fn::Join of parts with delimiter.
func Join(delimiter string, parts ...any) map[string]any {
	list := make([]any, len(parts))
	copy(list, parts)
	return map[string]any{"Fn::Join": []any{delimiter, list}}
}

// Select returns an Fn::Select of the index-th element of list.
func Select(index int, list any) map[string]any {
	return map[string]any{"Fn::Select": []any{index, list}}
}

// Split returns an Fn::Split of source on delimiter.
func Split(delimiter string, source any) map[string]any {
	return map[string]any{"Fn::Split": []any{delimiter, source}}
}

// GetAZs returns the availability zones of region; an empty region means
// the stack's region.
func GetAZs(region string) map[string]any {
	return map[string]any{"Fn::GetAZs": region}
}

// ImportValue returns an Fn::ImportValue of an exported output.
func ImportValue(name any) map[string]any {
	return map[string]any{"Fn::ImportValue": name}
}

// AccountID returns a Ref to AWS::AccountId.
func AccountID() map[string]any { return Ref(PseudoAccountID) }

// Region returns a Ref to AWS::Region.
func Region() map[string]any { return Ref(PseudoRegion) }

// Partition returns a Ref to AWS::Partition.
func Partition() map[string]any { return Ref(PseudoPartition) }

// StackName returns a Ref to AWS::StackName.
func StackName() map[string]any { return Ref(PseudoStackName) }

// URLSuffix returns a Ref to AWS::URLSuffix.
func URLSuffix() map[string]any { return Ref(PseudoURLSuffix) }

// NoValue returns a Ref to AWS::NoValue.
func NoValue() map[string]any { return Ref(PseudoNoValue) }

// IsIntrinsic reports whether v is an intrinsic function or Ref.
func IsIntrinsic(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

// Lazy is a property value computed when the template is built.
// Returning nil omits the property.
type Lazy func() any
