// Package synth turns a stack description into a CloudFormation stack.
//
// Synthesis runs as a sequence of phases over a shared [Context]:
//
//   - network: imports the configured VPC or declares a new one
//   - cluster: declares the provisioned or serverless cluster, or binds an
//     admin API to an external cluster
//   - topics, acls, grants, policies: declare the Kafka resources
//   - outputs: exports networking details for other stacks
//
// Each phase records what it declared in [State], which later phases read.
package synth
