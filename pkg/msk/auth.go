package msk

import (
	"errors"
	"fmt"
)

// SaslAuthProps selects SASL mechanisms.
type SaslAuthProps struct {
	IAM   bool
	Scram bool
}

// TLSAuthProps configures mTLS client authentication.
type TLSAuthProps struct {
	// CertificateAuthorities are ACM Private CA ARNs whose certificates
	// clients authenticate with. Entries are strings or intrinsics.
	CertificateAuthorities []any
}

// ClientAuthentication selects how clients authenticate to the brokers:
// SASL, TLS, or both. Build it with Sasl, TLS or SaslTLS.
type ClientAuthentication struct {
	sasl *SaslAuthProps
	tls  *TLSAuthProps
}

// Sasl returns SASL-only client authentication.
func Sasl(props SaslAuthProps) ClientAuthentication {
	return ClientAuthentication{sasl: &props}
}

// TLS returns mTLS-only client authentication.
func TLS(props TLSAuthProps) ClientAuthentication {
	return ClientAuthentication{tls: &props}
}

// SaslTLS returns client authentication accepting both SASL and mTLS.
func SaslTLS(sasl SaslAuthProps, tls TLSAuthProps) ClientAuthentication {
	return ClientAuthentication{sasl: &sasl, tls: &tls}
}

// IsZero reports whether no method has been selected.
func (c ClientAuthentication) IsZero() bool {
	return c.sasl == nil && c.tls == nil
}

// IAMEnabled reports whether SASL/IAM is enabled.
func (c ClientAuthentication) IAMEnabled() bool {
	return c.sasl != nil && c.sasl.IAM
}

// ScramEnabled reports whether SASL/SCRAM is enabled.
func (c ClientAuthentication) ScramEnabled() bool {
	return c.sasl != nil && c.sasl.Scram
}

// TLSEnabled reports whether mTLS is enabled.
func (c ClientAuthentication) TLSEnabled() bool {
	return c.tls != nil
}

// CertificateAuthorities returns the configured private CA ARNs.
func (c ClientAuthentication) CertificateAuthorities() []any {
	if c.tls == nil {
		return nil
	}
	return append([]any(nil), c.tls.CertificateAuthorities...)
}

// Supports reports whether an admin handler can use auth against the cluster.
func (c ClientAuthentication) Supports(auth Authentication) bool {
	switch auth {
	case AuthenticationIAM:
		return c.IAMEnabled()
	case AuthenticationMTLS:
		return c.TLSEnabled()
	default:
		return false
	}
}

// Methods returns the admin-usable authentication methods that are enabled.
func (c ClientAuthentication) Methods() []Authentication {
	var out []Authentication
	for _, a := range ValidAuthentications() {
		if c.Supports(a) {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks at least one usable method is configured.
func (c ClientAuthentication) Validate() error {
	if c.IsZero() {
		return errors.New("client authentication requires SASL or TLS")
	}
	if c.sasl != nil && !c.sasl.IAM && !c.sasl.Scram {
		return errors.New("SASL authentication requires IAM or SCRAM")
	}
	if c.tls != nil && len(c.tls.CertificateAuthorities) == 0 {
		return errors.New("TLS authentication requires at least one certificate authority")
	}
	if !c.IAMEnabled() && !c.TLSEnabled() {
		return fmt.Errorf("%w: admin handlers need IAM or mTLS, SCRAM alone is not enough", ErrUnsupportedAuth)
	}
	return nil
}

// Property returns the ClientAuthentication property of AWS::MSK::Cluster.
func (c ClientAuthentication) Property() map[string]any {
	prop := map[string]any{
		"Unauthenticated": map[string]any{"Enabled": false},
	}
	if c.sasl != nil {
		prop["Sasl"] = map[string]any{
			"Iam":   map[string]any{"Enabled": c.sasl.IAM},
			"Scram": map[string]any{"Enabled": c.sasl.Scram},
		}
	}
	if c.tls != nil {
		prop["Tls"] = map[string]any{
			"Enabled":                     true,
			"CertificateAuthorityArnList": append([]any(nil), c.tls.CertificateAuthorities...),
		}
	}
	return prop
}

// VpcClientAuthentication selects which methods multi-VPC private
// connectivity clients may use.
type VpcClientAuthentication struct {
	IAM   bool
	Scram bool
	TLS   bool
}

// Validate checks at least one method is set and each is enabled on the cluster.
func (v VpcClientAuthentication) Validate(cluster ClientAuthentication) error {
	if !v.IAM && !v.Scram && !v.TLS {
		return errors.New("vpc connectivity requires at least one authentication method")
	}
	if v.IAM && !cluster.IAMEnabled() {
		return fmt.Errorf("%w: vpc connectivity IAM needs cluster IAM", ErrAuthNotEnabled)
	}
	if v.Scram && !cluster.ScramEnabled() {
		return fmt.Errorf("%w: vpc connectivity SCRAM needs cluster SCRAM", ErrAuthNotEnabled)
	}
	if v.TLS && !cluster.TLSEnabled() {
		return fmt.Errorf("%w: vpc connectivity TLS needs cluster TLS", ErrAuthNotEnabled)
	}
	return nil
}

// Property returns the VpcConnectivity property of AWS::MSK::Cluster.
func (v VpcClientAuthentication) Property() map[string]any {
	return map[string]any{
		"ClientAuthentication": map[string]any{
			"Sasl": map[string]any{
				"Iam":   map[string]any{"Enabled": v.IAM},
				"Scram": map[string]any{"Enabled": v.Scram},
			},
			"Tls": map[string]any{"Enabled": v.TLS},
		},
	}
}

// AclAdminProps bootstraps Kafka ACL administration on an mTLS cluster.
type AclAdminProps struct {
	// AdminPrincipal is the distinguished name of the certificate the admin
	// handler authenticates with.
	AdminPrincipal string
	// AclAdminPrincipal is an additional principal granted full ACL rights.
	AclAdminPrincipal string
	// SecretCertificate is the ARN of a Secrets Manager secret holding
	// {"key": "<PEM>", "cert": "<PEM>"}. A string or an intrinsic.
	SecretCertificate any
}

// Validate checks all fields are present.
func (p *AclAdminProps) Validate() error {
	if p == nil {
		return errors.New("certificate definition is required when TLS authentication is enabled")
	}
	var errs []error
	if p.AdminPrincipal == "" {
		errs = append(errs, errors.New("adminPrincipal is required"))
	}
	if p.AclAdminPrincipal == "" {
		errs = append(errs, errors.New("aclAdminPrincipal is required"))
	}
	if p.SecretCertificate == nil || p.SecretCertificate == "" {
		errs = append(errs, errors.New("secretCertificate is required"))
	}
	return errors.Join(errs...)
}
