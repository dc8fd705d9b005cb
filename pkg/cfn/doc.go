// Package cfn models CloudFormation templates.
//
// A [Stack] collects resources, parameters and outputs under
// logical IDs and renders them as a template document in JSON or YAML.
// Intrinsic functions ([Ref], [GetAtt], [Sub], [Join], ...) are plain
// values that can be nested anywhere inside resource properties.
//
// Property values wrapped with [Lazy] are evaluated when the template is
// built, which lets higher-level constructs keep accumulating state (for
// example IAM policy statements) after their resources have been added.
package cfn
