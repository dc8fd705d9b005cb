package msk

import "errors"

var (
	// ErrAuthNotEnabled is returned when an operation asks for an
	// authentication method the cluster does not have enabled.
	ErrAuthNotEnabled = errors.New("authentication method not enabled on cluster")
	// ErrUnsupportedAuth is returned when the cluster type cannot use the
	// requested authentication method at all.
	ErrUnsupportedAuth = errors.New("authentication method not supported")
	// ErrACLNotSupported is returned when ACLs are requested through IAM,
	// which does not use Kafka ACLs.
	ErrACLNotSupported = errors.New("kafka ACLs require mTLS authentication")
	// ErrPrincipalMismatch is returned when a grant principal does not fit
	// the authentication method.
	ErrPrincipalMismatch = errors.New("principal does not match authentication method")
)
