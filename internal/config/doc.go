// Package config defines the mskstack.yaml stack description.
//
// A [Config] names the CloudFormation stack, locates the Kafka admin
// handler package, and declares one cluster (provisioned, serverless or an
// external cluster to administer) together with its topics, ACLs, grants
// and cluster policies. [Load] reads and validates a file; [ApplyDefaults]
// fills in everything the file leaves out.
package config
