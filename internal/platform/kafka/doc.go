// Package kafka opens read-only admin connections to MSK brokers and
// reports drift between the declared and the live topics and ACLs.
//
// IAM connections authenticate with SASL/OAUTHBEARER tokens signed by the
// MSK IAM signer. mTLS connections present the admin certificate read
// from Secrets Manager.
package kafka
