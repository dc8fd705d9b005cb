package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/imamik/mskstack/pkg/msk"
	"github.com/imamik/mskstack/pkg/vpc"
)

var (
	stackNameRegex = regexp.MustCompile(`^[A-Za-z][-A-Za-z0-9]{0,127}$`)
	regionRegex    = regexp.MustCompile(`^[a-z]{2}(-gov)?-[a-z]+-\d$`)
	accountRegex   = regexp.MustCompile(`^\d{12}$`)
	idRegex        = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)
)

// Validate checks the configuration. Sections are checked in file order and
// the first failing section is reported.
func (c *Config) Validate() error {
	if err := c.Stack.validate(); err != nil {
		return fmt.Errorf("stack: %w", err)
	}
	if err := c.Handler.validate(); err != nil {
		return fmt.Errorf("handler: %w", err)
	}
	if err := c.Staging.validate(); err != nil {
		return fmt.Errorf("staging: %w", err)
	}
	if err := c.Cluster.validate(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if err := c.validateTopics(); err != nil {
		return fmt.Errorf("topics: %w", err)
	}
	if err := c.validateACLs(); err != nil {
		return fmt.Errorf("acls: %w", err)
	}
	if err := c.validateGrants(); err != nil {
		return fmt.Errorf("grants: %w", err)
	}
	if err := c.validateClusterPolicies(); err != nil {
		return fmt.Errorf("clusterPolicies: %w", err)
	}
	return nil
}

func (s StackConfig) validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if !stackNameRegex.MatchString(s.Name) {
		return fmt.Errorf("invalid name %q: must start with a letter and contain only alphanumerics and hyphens (max 128)", s.Name)
	}
	if s.Region != "" && !regionRegex.MatchString(s.Region) {
		return fmt.Errorf("invalid region %q", s.Region)
	}
	if s.Account != "" && !accountRegex.MatchString(s.Account) {
		return fmt.Errorf("invalid account %q: must be 12 digits", s.Account)
	}
	return nil
}

func (h HandlerConfig) validate() error {
	return h.HandlerCode().Validate()
}

// HandlerCode converts the section to its construct value.
func (h HandlerConfig) HandlerCode() msk.HandlerCode {
	return msk.HandlerCode{
		S3Bucket:        h.S3Bucket,
		S3Key:           h.S3Key,
		S3ObjectVersion: h.S3ObjectVersion,
		Runtime:         h.Runtime,
		Handler:         h.Handler,
		Timeout:         h.Timeout,
		MemorySize:      h.MemorySize,
		Architecture:    h.Architecture,
	}
}

func (s StagingConfig) validate() error {
	if s.Bucket == "" && (s.Prefix != "" || s.Create) {
		return errors.New("bucket is required when prefix or create is set")
	}
	if strings.HasPrefix(s.Prefix, "/") {
		return fmt.Errorf("invalid prefix %q: must not start with /", s.Prefix)
	}
	return nil
}

func (c ClusterConfig) validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid type %q: must be one of %v", c.Type, ValidClusterTypes())
	}
	if !c.RemovalPolicy.IsValid() {
		return fmt.Errorf("invalid removalPolicy %q", c.RemovalPolicy)
	}
	if !c.LogLevel.IsValid() {
		return fmt.Errorf("invalid logLevel %q", c.LogLevel)
	}
	if err := c.Vpc.validate(c.Type == ClusterTypeExternal); err != nil {
		return fmt.Errorf("vpc: %w", err)
	}

	switch c.Type {
	case ClusterTypeProvisioned:
		if c.External != nil {
			return errors.New("external section is only read for external clusters")
		}
		if err := c.Provisioned.validate(); err != nil {
			return fmt.Errorf("provisioned: %w", err)
		}
	case ClusterTypeServerless:
		if c.Provisioned != nil || c.External != nil {
			return errors.New("serverless clusters take no provisioned or external section")
		}
	case ClusterTypeExternal:
		if c.Provisioned != nil {
			return errors.New("provisioned section is only read for provisioned clusters")
		}
		if err := c.External.validate(); err != nil {
			return fmt.Errorf("external: %w", err)
		}
	}
	return nil
}

func (v VpcConfig) validate(required bool) error {
	if v.CIDR != "" {
		if _, err := vpc.CIDRSubnet(v.CIDR, 0, 0); err != nil {
			return fmt.Errorf("invalid cidr: %w", err)
		}
	}
	if !v.Existing() {
		if required {
			return errors.New("id is required for external clusters")
		}
		if len(v.PrivateSubnetIDs) > 0 || len(v.SecurityGroupIDs) > 0 {
			return errors.New("privateSubnetIds and securityGroupIds need an existing vpc id")
		}
		if v.MaxAZs < 0 || v.MaxAZs > 6 {
			return fmt.Errorf("maxAzs must be between 1 and 6, got %d", v.MaxAZs)
		}
		if v.NatGateways != nil && *v.NatGateways < 0 {
			return fmt.Errorf("natGateways must not be negative, got %d", *v.NatGateways)
		}
		return nil
	}
	if len(v.PrivateSubnetIDs) == 0 {
		return errors.New("privateSubnetIds are required for an existing vpc")
	}
	if v.MaxAZs != 0 || v.NatGateways != nil || v.FlowLogs != nil {
		return errors.New("maxAzs, natGateways and flowLogs only apply to a new vpc")
	}
	return nil
}

// Props converts a new-VPC section to construct props.
func (v VpcConfig) Props() vpc.Props {
	return vpc.Props{
		CIDR:                 v.CIDR,
		MaxAZs:               v.MaxAZs,
		NatGateways:          v.NatGateways,
		FlowLogs:             v.FlowLogs,
		FlowLogRetentionDays: v.FlowLogRetentionDays,
	}
}

func (p *ProvisionedConfig) validate() error {
	if p == nil {
		return errors.New("section is required")
	}
	if !p.InstanceType.IsValid() {
		return fmt.Errorf("unsupported instanceType %q", p.InstanceType)
	}
	if p.Brokers < 0 {
		return fmt.Errorf("brokers must not be negative, got %d", p.Brokers)
	}
	if !p.KafkaVersion.IsValid() {
		return fmt.Errorf("unsupported kafkaVersion %q", p.KafkaVersion)
	}
	if !p.StorageMode.IsValid() {
		return fmt.Errorf("invalid storageMode %q", p.StorageMode)
	}
	if !p.Monitoring.Level.IsValid() {
		return fmt.Errorf("invalid monitoring level %q", p.Monitoring.Level)
	}
	if p.Logging.S3 != nil && p.Logging.S3.Bucket == "" {
		return errors.New("logging.s3.bucket is required")
	}
	auth := p.Authentication.ClientAuthentication()
	if err := auth.Validate(); err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	if auth.TLSEnabled() && p.Certificate == nil {
		return errors.New("certificate is required when tls authentication is enabled")
	}
	if p.Certificate != nil {
		if err := p.Certificate.AclAdminProps().Validate(); err != nil {
			return fmt.Errorf("certificate: %w", err)
		}
	}
	if p.VpcConnectivity != nil {
		if err := p.VpcClientAuthentication().Validate(auth); err != nil {
			return fmt.Errorf("vpcConnectivity: %w", err)
		}
	}
	return nil
}

// VpcClientAuthentication converts the vpcConnectivity section, or returns
// nil when it is absent.
func (p *ProvisionedConfig) VpcClientAuthentication() *msk.VpcClientAuthentication {
	if p.VpcConnectivity == nil {
		return nil
	}
	return &msk.VpcClientAuthentication{
		IAM:   p.VpcConnectivity.IAM,
		Scram: p.VpcConnectivity.Scram,
		TLS:   p.VpcConnectivity.TLS != nil,
	}
}

// AclAdminProps converts the section to its construct value.
func (c *CertificateConfig) AclAdminProps() *msk.AclAdminProps {
	if c == nil {
		return nil
	}
	return &msk.AclAdminProps{
		AdminPrincipal:    c.AdminPrincipal,
		AclAdminPrincipal: c.AclAdminPrincipal,
		SecretCertificate: c.SecretArn,
	}
}

func (e *ExternalConfig) validate() error {
	if e == nil {
		return errors.New("section is required")
	}
	if _, err := msk.ParseClusterArn(e.Arn); err != nil {
		return err
	}
	if !e.ClusterType.IsValid() {
		return fmt.Errorf("invalid clusterType %q", e.ClusterType)
	}
	if e.BrokerSecurityGroupID == "" {
		return errors.New("brokerSecurityGroupId is required")
	}
	auth := e.Authentication.ClientAuthentication()
	if err := auth.Validate(); err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	if auth.TLSEnabled() && e.CertificateSecretArn == "" {
		return errors.New("certificateSecretArn is required when tls authentication is enabled")
	}
	return nil
}

// methodEnabled reports whether the cluster accepts auth for admin operations.
func (c *Config) methodEnabled(auth msk.Authentication) bool {
	switch c.Cluster.Type {
	case ClusterTypeServerless:
		return auth == msk.AuthenticationIAM
	case ClusterTypeProvisioned:
		return c.Cluster.Provisioned != nil && c.Cluster.Provisioned.Authentication.ClientAuthentication().Supports(auth)
	case ClusterTypeExternal:
		return c.Cluster.External != nil && c.Cluster.External.Authentication.ClientAuthentication().Supports(auth)
	}
	return false
}

func (c *Config) validateTopics() error {
	seen := make(map[string]bool, len(c.Topics))
	for i, t := range c.Topics {
		if seen[t.Name] {
			return fmt.Errorf("topic %q declared twice", t.Name)
		}
		seen[t.Name] = true
		if err := t.MskTopic().Validate(); err != nil {
			return fmt.Errorf("topic %d (%s): %w", i, t.Name, err)
		}
		if !t.Auth.IsValid() {
			return fmt.Errorf("topic %s: invalid auth %q", t.Name, t.Auth)
		}
		if !c.methodEnabled(t.Auth) {
			return fmt.Errorf("topic %s: %w: %s", t.Name, msk.ErrAuthNotEnabled, t.Auth)
		}
		if t.RemovalPolicy != "" && !t.RemovalPolicy.IsValid() {
			return fmt.Errorf("topic %s: invalid removalPolicy %q", t.Name, t.RemovalPolicy)
		}
		if t.Timeout < 0 || t.Timeout > 15*time.Minute {
			return fmt.Errorf("topic %s: timeout must be between 0 and 15m, got %s", t.Name, t.Timeout)
		}
	}
	return nil
}

// MskTopic converts the entry to its construct value. Config entries are
// emitted in name order.
func (t TopicConfig) MskTopic() msk.MskTopic {
	topic := msk.MskTopic{
		Topic:             t.Name,
		NumPartitions:     t.Partitions,
		ReplicationFactor: t.ReplicationFactor,
		ReplicaAssignment: t.ReplicaAssignment,
	}
	for _, name := range sortedKeys(t.Config) {
		topic.ConfigEntries = append(topic.ConfigEntries, msk.ConfigEntry{Name: name, Value: t.Config[name]})
	}
	return topic
}

func (c *Config) validateACLs() error {
	ids := make(map[string]bool, len(c.ACLs))
	for i, a := range c.ACLs {
		if err := checkID(a.ID, ids); err != nil {
			return fmt.Errorf("acl %d: %w", i, err)
		}
		if a.Auth == msk.AuthenticationIAM {
			return fmt.Errorf("acl %d: %w", i, msk.ErrACLNotSupported)
		}
		if !c.methodEnabled(a.Auth) {
			return fmt.Errorf("acl %d: %w: %s", i, msk.ErrAuthNotEnabled, a.Auth)
		}
		if err := a.Acl.Validate(); err != nil {
			return fmt.Errorf("acl %d: %w", i, err)
		}
		if a.RemovalPolicy != "" && !a.RemovalPolicy.IsValid() {
			return fmt.Errorf("acl %d: invalid removalPolicy %q", i, a.RemovalPolicy)
		}
	}
	return nil
}

func (c *Config) validateGrants() error {
	ids := make(map[string]bool, len(c.Grants))
	for i, g := range c.Grants {
		if err := checkID(g.ID, ids); err != nil {
			return fmt.Errorf("grant %d: %w", i, err)
		}
		if err := (msk.MskTopic{Topic: g.Topic}).Validate(); err != nil {
			return fmt.Errorf("grant %d: %w", i, err)
		}
		if !g.Access.IsValid() {
			return fmt.Errorf("grant %d: invalid access %q: must be one of %v", i, g.Access, ValidAccesses())
		}
		if !c.methodEnabled(g.Auth) {
			return fmt.Errorf("grant %d: %w: %s", i, msk.ErrAuthNotEnabled, g.Auth)
		}
		roles := 0
		if g.RoleName != "" {
			roles++
		}
		if g.RoleArn != "" {
			roles++
		}
		switch g.Auth {
		case msk.AuthenticationIAM:
			if roles != 1 || g.DistinguishedName != "" {
				return fmt.Errorf("grant %d: %w: iam grants need exactly one of roleName or roleArn", i, msk.ErrPrincipalMismatch)
			}
		case msk.AuthenticationMTLS:
			if roles != 0 || g.DistinguishedName == "" {
				return fmt.Errorf("grant %d: %w: mtls grants need only a distinguishedName", i, msk.ErrPrincipalMismatch)
			}
		}
		if g.RemovalPolicy != "" && !g.RemovalPolicy.IsValid() {
			return fmt.Errorf("grant %d: invalid removalPolicy %q", i, g.RemovalPolicy)
		}
	}
	return nil
}

func (c *Config) validateClusterPolicies() error {
	ids := make(map[string]bool, len(c.ClusterPolicies))
	for i, p := range c.ClusterPolicies {
		if p.ID == "" {
			return fmt.Errorf("policy %d: id is required", i)
		}
		if err := checkID(p.ID, ids); err != nil {
			return fmt.Errorf("policy %d: %w", i, err)
		}
		if len(p.Statements) == 0 {
			return fmt.Errorf("policy %s: at least one statement is required", p.ID)
		}
		for j, s := range p.Statements {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("policy %s: statement %d: %w", p.ID, j, err)
			}
		}
	}
	return nil
}

// checkID validates an optional entry ID and records it in seen.
func checkID(id string, seen map[string]bool) error {
	if id == "" {
		return nil
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("invalid id %q: must be alphanumeric and start with a letter", id)
	}
	if seen[id] {
		return fmt.Errorf("id %q used twice", id)
	}
	seen[id] = true
	return nil
}
