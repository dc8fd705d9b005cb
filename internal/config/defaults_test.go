package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/msk"
)

func TestApplyDefaults_Provisioned(t *testing.T) {
	cfg := &Config{Staging: StagingConfig{Bucket: "artifacts"}}
	ApplyDefaults(cfg)

	assert.Equal(t, ClusterTypeProvisioned, cfg.Cluster.Type)
	assert.Equal(t, msk.DefaultProvisionedClusterName, cfg.Cluster.Name)
	assert.Equal(t, DefaultStagingPrefix, cfg.Staging.Prefix)
	require.NotNil(t, cfg.Cluster.Provisioned)

	p := cfg.Cluster.Provisioned
	assert.Equal(t, msk.DefaultInstanceType, p.InstanceType)
	assert.Equal(t, msk.DefaultKafkaVersion, p.KafkaVersion)
	assert.Equal(t, msk.StorageModeLocal, p.StorageMode)
	assert.Equal(t, msk.MonitoringDefault, p.Monitoring.Level)
	assert.Equal(t, AuthConfig{IAM: true}, p.Authentication)
}

func TestApplyDefaults_NormalizesSpellings(t *testing.T) {
	cfg := &Config{
		Cluster: ClusterConfig{
			Type:          ClusterTypeProvisioned,
			RemovalPolicy: "snapshot",
			LogLevel:      "info",
			Provisioned: &ProvisionedConfig{
				InstanceType: "M5.XLARGE",
				KafkaVersion: " 3.6.0 ",
				StorageMode:  "tiered",
				Monitoring:   MonitoringConfig{Level: "per_broker"},
			},
		},
		Topics: []TopicConfig{{Name: "orders", Auth: "IAM", RemovalPolicy: "retain"}},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, cfn.RemovalPolicySnapshot, cfg.Cluster.RemovalPolicy)
	assert.Equal(t, msk.LogLevelInfo, cfg.Cluster.LogLevel)
	assert.Equal(t, msk.InstanceM5XLarge, cfg.Cluster.Provisioned.InstanceType)
	assert.Equal(t, msk.KafkaV3_6_0, cfg.Cluster.Provisioned.KafkaVersion)
	assert.Equal(t, msk.StorageModeTiered, cfg.Cluster.Provisioned.StorageMode)
	assert.Equal(t, msk.MonitoringPerBroker, cfg.Cluster.Provisioned.Monitoring.Level)
	assert.Equal(t, msk.AuthenticationIAM, cfg.Topics[0].Auth)
	assert.Equal(t, cfn.RemovalPolicyRetain, cfg.Topics[0].RemovalPolicy)
}

func TestApplyDefaults_KeepsInvalidValues(t *testing.T) {
	cfg := &Config{
		Cluster: ClusterConfig{Type: ClusterTypeProvisioned, RemovalPolicy: "keep"},
		Topics:  []TopicConfig{{Name: "orders", Auth: "scram"}},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, cfn.RemovalPolicy("keep"), cfg.Cluster.RemovalPolicy)
	assert.Equal(t, msk.Authentication("scram"), cfg.Topics[0].Auth)
}

func TestApplyDefaults_AuthFallbacks(t *testing.T) {
	cfg := &Config{
		Cluster: ClusterConfig{
			Type: ClusterTypeProvisioned,
			Provisioned: &ProvisionedConfig{
				Authentication: AuthConfig{TLS: &TLSConfig{CertificateAuthorities: []string{"ca"}}},
			},
		},
		Topics: []TopicConfig{{Name: "orders"}},
		ACLs:   []ACLConfig{{}},
		Grants: []GrantConfig{
			{Topic: "orders", RoleName: "producer"},
			{Topic: "orders", DistinguishedName: "CN=consumer"},
			{Topic: "orders", DistinguishedName: "CN=edge", Host: "10.0.0.1"},
		},
	}
	ApplyDefaults(cfg)

	assert.False(t, cfg.Cluster.Provisioned.Authentication.IAM)
	assert.Equal(t, msk.AuthenticationMTLS, cfg.Topics[0].Auth)
	assert.Equal(t, msk.AuthenticationMTLS, cfg.ACLs[0].Auth)
	assert.Equal(t, msk.AnyHost, cfg.ACLs[0].Host)

	assert.Equal(t, msk.AuthenticationIAM, cfg.Grants[0].Auth)
	assert.Empty(t, cfg.Grants[0].Host)
	assert.Equal(t, msk.AuthenticationMTLS, cfg.Grants[1].Auth)
	assert.Equal(t, msk.AnyHost, cfg.Grants[1].Host)
	assert.Equal(t, "10.0.0.1", cfg.Grants[2].Host)
}

func TestApplyDefaults_ServerlessAndExternal(t *testing.T) {
	serverless := &Config{Cluster: ClusterConfig{Type: ClusterTypeServerless}, Topics: []TopicConfig{{Name: "events"}}}
	ApplyDefaults(serverless)
	assert.Equal(t, msk.DefaultServerlessClusterName, serverless.Cluster.Name)
	assert.Nil(t, serverless.Cluster.Provisioned)
	assert.Equal(t, msk.AuthenticationIAM, serverless.Topics[0].Auth)

	external := &Config{Cluster: ClusterConfig{Type: ClusterTypeExternal, External: &ExternalConfig{ClusterType: "serverless"}}}
	ApplyDefaults(external)
	assert.Empty(t, external.Cluster.Name)
	assert.Equal(t, msk.ClusterTypeServerless, external.Cluster.External.ClusterType)
	assert.True(t, external.Cluster.External.Authentication.IAM)
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := validConfig()
	again := validConfig()
	ApplyDefaults(again)
	assert.Equal(t, cfg, again)
}

func TestAdminAccess(t *testing.T) {
	t.Run("iam by default", func(t *testing.T) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		auth, secret := cfg.AdminAccess()
		assert.Equal(t, msk.AuthenticationIAM, auth)
		assert.Empty(t, secret)
	})

	t.Run("mtls with certificate", func(t *testing.T) {
		cfg := &Config{Cluster: ClusterConfig{Provisioned: &ProvisionedConfig{
			Authentication: AuthConfig{IAM: true, TLS: &TLSConfig{CertificateAuthorities: []string{"arn:aws:acm-pca:eu-west-1:123456789012:certificate-authority/ca"}}},
			Certificate:    &CertificateConfig{AdminPrincipal: "CN=admin", AclAdminPrincipal: "CN=admin", SecretArn: "arn:aws:secretsmanager:eu-west-1:123456789012:secret:admin"},
		}}}
		ApplyDefaults(cfg)
		auth, secret := cfg.AdminAccess()
		assert.Equal(t, msk.AuthenticationMTLS, auth)
		assert.Equal(t, "arn:aws:secretsmanager:eu-west-1:123456789012:secret:admin", secret)
	})

	t.Run("external without tls ignores secret", func(t *testing.T) {
		cfg := &Config{Cluster: ClusterConfig{Type: ClusterTypeExternal, External: &ExternalConfig{
			Arn:                  "arn:aws:kafka:eu-west-1:123456789012:cluster/orders/abc",
			CertificateSecretArn: "arn:aws:secretsmanager:eu-west-1:123456789012:secret:admin",
		}}}
		ApplyDefaults(cfg)
		auth, secret := cfg.AdminAccess()
		assert.Equal(t, msk.AuthenticationIAM, auth)
		assert.Empty(t, secret)
	})
}
