// Package msk declares Amazon MSK clusters and their Kafka administration
// on a cfn.Stack.
//
// MskProvisioned and MskServerless create a cluster together with a
// KafkaAPI bound to it. NewKafkaAPI binds to a cluster created elsewhere.
// Topics and ACLs are declared as custom resources served by an external
// admin handler running in the cluster's VPC; one handler is created per
// authentication method on first use.
//
// Grants follow the authentication method. Over IAM they add
// kafka-cluster statements to the grantee's policy. Over mTLS they declare
// Kafka ACL entries for the certificate's distinguished name.
package msk
