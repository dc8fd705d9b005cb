package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/imamik/mskstack/pkg/msk"
)

const (
	// DefaultClientID identifies admin connections in broker logs.
	DefaultClientID = "mskstack"
	// DefaultDialTimeout bounds each broker dial.
	DefaultDialTimeout = 10 * time.Second
)

// Options configures an admin connection.
type Options struct {
	Brokers []string
	Auth    msk.Authentication

	// Region and Credentials sign IAM tokens.
	Region      string
	Credentials aws.CredentialsProvider

	// Certificate is the mTLS client certificate.
	Certificate *tls.Certificate

	ClientID    string
	DialTimeout time.Duration
	// DialRetries is the number of retries of a failed connect.
	DialRetries int
	DialDelay   time.Duration
}

// NewConfig builds the sarama configuration for opts. MSK only accepts
// TLS on the IAM and mTLS listeners, so TLS is always on.
func NewConfig(ctx context.Context, opts Options) (*sarama.Config, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.ClientID = opts.ClientID
	if sc.ClientID == "" {
		sc.ClientID = DefaultClientID
	}
	sc.Net.DialTimeout = opts.DialTimeout
	if sc.Net.DialTimeout == 0 {
		sc.Net.DialTimeout = DefaultDialTimeout
	}
	sc.Net.TLS.Enable = true
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	switch opts.Auth {
	case msk.AuthenticationIAM:
		provider, err := newIAMTokenProvider(ctx, opts.Region, opts.Credentials)
		if err != nil {
			return nil, err
		}
		sc.Net.SASL.Enable = true
		sc.Net.SASL.Mechanism = sarama.SASLTypeOAuth
		sc.Net.SASL.Version = sarama.SASLHandshakeV1
		sc.Net.SASL.TokenProvider = provider
	case msk.AuthenticationMTLS:
		if opts.Certificate == nil {
			return nil, fmt.Errorf("a client certificate is required for mTLS authentication")
		}
		tlsConfig.Certificates = []tls.Certificate{*opts.Certificate}
	default:
		return nil, fmt.Errorf("%w: %q", msk.ErrUnsupportedAuth, opts.Auth)
	}
	sc.Net.TLS.Config = tlsConfig

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka client config: %w", err)
	}
	return sc, nil
}
