package aws

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// certificateSecret is the stored form of the mTLS admin certificate.
type certificateSecret struct {
	Key  string `json:"key"`
	Cert string `json:"cert"`
}

// GetCertificate loads the mTLS admin certificate from Secrets Manager.
func (c *Clients) GetCertificate(ctx context.Context, secretArn string) (tls.Certificate, error) {
	var out *secretsmanager.GetSecretValueOutput
	err := c.call(ctx, "GetSecretValue", func() error {
		var err error
		out, err = c.SecretsManager.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretArn)})
		return err
	})
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to read secret %s: %w", secretArn, err)
	}

	data := out.SecretBinary
	if out.SecretString != nil {
		data = []byte(*out.SecretString)
	}
	return ParseCertificateSecret(data)
}

// ParseCertificateSecret parses a {"key": PEM, "cert": PEM} secret into a
// certificate.
func ParseCertificateSecret(data []byte) (tls.Certificate, error) {
	var s certificateSecret
	if err := json.Unmarshal(data, &s); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse certificate secret: %w", err)
	}

	var errs []error
	if s.Key == "" {
		errs = append(errs, errors.New("secret has no key"))
	}
	if s.Cert == "" {
		errs = append(errs, errors.New("secret has no cert"))
	}
	if err := errors.Join(errs...); err != nil {
		return tls.Certificate{}, err
	}

	cert, err := tls.X509KeyPair([]byte(s.Cert), []byte(s.Key))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("invalid certificate pair: %w", err)
	}
	return cert, nil
}
