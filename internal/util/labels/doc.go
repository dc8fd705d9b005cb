// Package labels builds the tags mskstack puts on its CloudFormation stacks.
//
// CloudFormation copies stack tags to every taggable resource in the stack,
// so these tags identify the cluster, its brokers, the admin handlers and
// the VPC as belonging to one mskstack stack.
package labels
