package config

import (
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/msk"
)

// DefaultStagingPrefix is the key prefix of staged templates.
const DefaultStagingPrefix = "mskstack/"

// ApplyDefaults fills in unset values and normalizes enum spellings, so
// "m5.large", "tiered" and "debug" read the same as their canonical forms.
// Values that fail to parse are left for Validate to report.
func ApplyDefaults(cfg *Config) {
	if cfg.Staging.Bucket != "" && cfg.Staging.Prefix == "" {
		cfg.Staging.Prefix = DefaultStagingPrefix
	}

	c := &cfg.Cluster
	if c.Type == "" {
		c.Type = ClusterTypeProvisioned
	}
	if c.RemovalPolicy == "" {
		c.RemovalPolicy = cfn.RemovalPolicyDestroy
	} else if p, err := cfn.ParseRemovalPolicy(string(c.RemovalPolicy)); err == nil {
		c.RemovalPolicy = p
	}
	if c.LogLevel == "" {
		c.LogLevel = msk.DefaultLogLevel
	} else if l, err := msk.ParseLogLevel(string(c.LogLevel)); err == nil {
		c.LogLevel = l
	}

	switch c.Type {
	case ClusterTypeProvisioned:
		if c.Name == "" {
			c.Name = msk.DefaultProvisionedClusterName
		}
		if c.Provisioned == nil {
			c.Provisioned = &ProvisionedConfig{}
		}
		c.Provisioned.applyDefaults()
	case ClusterTypeServerless:
		if c.Name == "" {
			c.Name = msk.DefaultServerlessClusterName
		}
	case ClusterTypeExternal:
		if c.External != nil {
			if c.External.ClusterType == "" {
				c.External.ClusterType = msk.ClusterTypeProvisioned
			} else if t, err := msk.ParseClusterType(string(c.External.ClusterType)); err == nil {
				c.External.ClusterType = t
			}
			if c.External.Authentication.IsZero() {
				c.External.Authentication.IAM = true
			}
		}
	}

	auth := cfg.defaultAuth()
	for i := range cfg.Topics {
		t := &cfg.Topics[i]
		t.Auth = normalizeAuth(t.Auth, auth)
		t.RemovalPolicy = normalizeRemoval(t.RemovalPolicy)
	}
	for i := range cfg.ACLs {
		a := &cfg.ACLs[i]
		a.Auth = normalizeAuth(a.Auth, msk.AuthenticationMTLS)
		a.RemovalPolicy = normalizeRemoval(a.RemovalPolicy)
		if a.Host == "" {
			a.Host = msk.AnyHost
		}
	}
	for i := range cfg.Grants {
		g := &cfg.Grants[i]
		fallback := msk.AuthenticationIAM
		if g.DistinguishedName != "" {
			fallback = msk.AuthenticationMTLS
		}
		g.Auth = normalizeAuth(g.Auth, fallback)
		g.RemovalPolicy = normalizeRemoval(g.RemovalPolicy)
		if g.Auth == msk.AuthenticationMTLS && g.Host == "" {
			g.Host = msk.AnyHost
		}
	}
}

func (p *ProvisionedConfig) applyDefaults() {
	if p.InstanceType == "" {
		p.InstanceType = msk.DefaultInstanceType
	} else if it, err := msk.ParseBrokerInstanceType(string(p.InstanceType)); err == nil {
		p.InstanceType = it
	}
	if p.KafkaVersion == "" {
		p.KafkaVersion = msk.DefaultKafkaVersion
	} else if v, err := msk.ParseKafkaVersion(string(p.KafkaVersion)); err == nil {
		p.KafkaVersion = v
	}
	if p.StorageMode == "" {
		p.StorageMode = msk.StorageModeLocal
	} else if m, err := msk.ParseStorageMode(string(p.StorageMode)); err == nil {
		p.StorageMode = m
	}
	if p.VolumeSize == 0 {
		p.VolumeSize = msk.DefaultVolumeSize
	}
	if p.Monitoring.Level == "" {
		p.Monitoring.Level = msk.MonitoringDefault
	} else if l, err := msk.ParseMonitoringLevel(string(p.Monitoring.Level)); err == nil {
		p.Monitoring.Level = l
	}
	if p.Authentication.IsZero() {
		p.Authentication.IAM = true
	}
}

// defaultAuth is the method topics use when they name none.
func (cfg *Config) defaultAuth() msk.Authentication {
	switch cfg.Cluster.Type {
	case ClusterTypeProvisioned:
		if cfg.Cluster.Provisioned != nil {
			return cfg.Cluster.Provisioned.Authentication.DefaultMethod()
		}
	case ClusterTypeExternal:
		if cfg.Cluster.External != nil {
			return cfg.Cluster.External.Authentication.DefaultMethod()
		}
	}
	return msk.AuthenticationIAM
}

func normalizeAuth(a, fallback msk.Authentication) msk.Authentication {
	if a == "" {
		return fallback
	}
	if parsed, err := msk.ParseAuthentication(string(a)); err == nil {
		return parsed
	}
	return a
}

func normalizeRemoval(p cfn.RemovalPolicy) cfn.RemovalPolicy {
	if parsed, err := cfn.ParseRemovalPolicy(string(p)); err == nil {
		return parsed
	}
	return p
}

// AdminAccess returns how read-only admin tools connect to the cluster:
// over mTLS with the certificate secret when one is configured, since
// ACLs are only visible to the ACL admin, and with the default method
// otherwise.
func (cfg *Config) AdminAccess() (msk.Authentication, string) {
	var secretArn string
	switch cfg.Cluster.Type {
	case ClusterTypeProvisioned:
		if p := cfg.Cluster.Provisioned; p != nil && p.Certificate != nil {
			secretArn = p.Certificate.SecretArn
		}
	case ClusterTypeExternal:
		if e := cfg.Cluster.External; e != nil {
			secretArn = e.CertificateSecretArn
		}
	}
	if secretArn != "" && cfg.methodEnabled(msk.AuthenticationMTLS) {
		return msk.AuthenticationMTLS, secretArn
	}
	return cfg.defaultAuth(), ""
}
