// Package aws talks to the AWS APIs mskstack needs at deploy time:
// CloudFormation for stacks and change sets, S3 for staging large
// templates, MSK for cluster state and bootstrap brokers, and Secrets
// Manager for the mTLS admin certificate.
//
// Every client is held behind a narrow interface so commands can be
// tested against fakes.
package aws
