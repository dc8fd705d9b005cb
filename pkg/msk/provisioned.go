package msk

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

// Provisioned cluster defaults.
const (
	DefaultProvisionedClusterName = "default-msk-provisioned"
	DefaultVolumeSize             = 100
	maxVolumeSize                 = 16384
	brokerLogRetentionDays        = 30

	propAutoCreateTopics = "auto.create.topics.enable"
	propAllowEveryone    = "allow.everyone.if.no.acl.found"

	// AdminClusterResource is the resource name of the cluster in ACLs.
	AdminClusterResource = "kafka-cluster"
)

var clusterNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]{0,63}$`)

// EbsStorage configures broker volumes.
type EbsStorage struct {
	// VolumeSize in GiB.
	VolumeSize int
	// EncryptionKeyArn is a KMS key for data at rest. Empty uses the AWS managed key.
	EncryptionKeyArn any
}

// Monitoring configures enhanced and open monitoring.
type Monitoring struct {
	ClusterMonitoringLevel       ClusterMonitoringLevel
	EnablePrometheusJmxExporter  bool
	EnablePrometheusNodeExporter bool
}

// S3Logging delivers broker logs to a bucket.
type S3Logging struct {
	Bucket string
	Prefix string
}

// Logging configures broker log delivery. CloudWatch delivery to a new log
// group is on unless DisableCloudWatch is set.
type Logging struct {
	CloudWatchLogGroup         any
	DisableCloudWatch          bool
	FirehoseDeliveryStreamName string
	S3                         *S3Logging
}

// ProvisionedProps configures NewMskProvisioned.
type ProvisionedProps struct {
	ClusterName string
	// Vpc places the cluster in an existing VPC. Nil creates one from VpcProps.
	Vpc      *vpc.Vpc
	VpcProps vpc.Props
	// SecurityGroups attach existing groups instead of creating a broker group.
	// The first one is used for admin handler ingress.
	SecurityGroups       []any
	BrokerInstanceType   BrokerInstanceType
	NumberOfBrokerNodes  int
	KafkaVersion         KafkaVersion
	StorageMode          StorageMode
	EbsStorage           EbsStorage
	Monitoring           Monitoring
	Logging              Logging
	ClientAuthentication ClientAuthentication
	VpcConnectivity      *VpcClientAuthentication
	ServerProperties     map[string]string
	// AllowEveryoneIfNoAclFound defaults to true. Setting it to false on an
	// mTLS cluster locks the cluster once the admin ACLs exist.
	AllowEveryoneIfNoAclFound *bool
	CertificateDefinition     *AclAdminProps
	KafkaClientLogLevel       KafkaClientLogLevel
	RemovalPolicy             cfn.RemovalPolicy
	Handler                   HandlerCode
}

func (p *ProvisionedProps) applyDefaults() {
	if p.ClusterName == "" {
		p.ClusterName = DefaultProvisionedClusterName
	}
	if p.BrokerInstanceType == "" {
		p.BrokerInstanceType = DefaultInstanceType
	}
	if p.KafkaVersion == "" {
		p.KafkaVersion = DefaultKafkaVersion
	}
	if p.StorageMode == "" {
		p.StorageMode = StorageModeLocal
	}
	if p.EbsStorage.VolumeSize == 0 {
		p.EbsStorage.VolumeSize = DefaultVolumeSize
	}
	if p.Monitoring.ClusterMonitoringLevel == "" {
		p.Monitoring.ClusterMonitoringLevel = MonitoringDefault
	}
	if p.ClientAuthentication.IsZero() {
		p.ClientAuthentication = Sasl(SaslAuthProps{IAM: true})
	}
	if p.AllowEveryoneIfNoAclFound == nil {
		allow := true
		p.AllowEveryoneIfNoAclFound = &allow
	}
	p.KafkaClientLogLevel = p.KafkaClientLogLevel.Or(DefaultLogLevel)
	p.RemovalPolicy = p.RemovalPolicy.Or(cfn.RemovalPolicyDestroy)
}

// validate checks props after defaults. azCount is the number of AZs the
// brokers are spread across.
func (p *ProvisionedProps) validate(azCount int) error {
	var errs []error
	if !clusterNameRegex.MatchString(p.ClusterName) {
		errs = append(errs, fmt.Errorf("invalid cluster name %q: 1-64 letters, digits and hyphens, starting with a letter", p.ClusterName))
	}
	if !p.BrokerInstanceType.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported broker instance type %q", p.BrokerInstanceType))
	}
	if !p.KafkaVersion.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported kafka version %q", p.KafkaVersion))
	}
	if !p.StorageMode.IsValid() {
		errs = append(errs, fmt.Errorf("invalid storage mode %q", p.StorageMode))
	}
	if p.StorageMode == StorageModeTiered {
		if !p.KafkaVersion.SupportsTieredStorage() {
			errs = append(errs, fmt.Errorf("kafka version %s does not support tiered storage", p.KafkaVersion))
		}
		if p.BrokerInstanceType == InstanceT3Small {
			errs = append(errs, fmt.Errorf("tiered storage is not available on %s", InstanceT3Small))
		}
	}
	if azCount < 2 {
		errs = append(errs, fmt.Errorf("brokers need at least 2 availability zones, got %d", azCount))
	} else if p.NumberOfBrokerNodes < 0 || p.NumberOfBrokerNodes%azCount != 0 {
		errs = append(errs, fmt.Errorf("numberOfBrokerNodes must be a positive multiple of the %d availability zones, got %d", azCount, p.NumberOfBrokerNodes))
	}
	if p.EbsStorage.VolumeSize < 1 || p.EbsStorage.VolumeSize > maxVolumeSize {
		errs = append(errs, fmt.Errorf("ebs volume size must be between 1 and %d GiB, got %d", maxVolumeSize, p.EbsStorage.VolumeSize))
	}
	if !p.Monitoring.ClusterMonitoringLevel.IsValid() {
		errs = append(errs, fmt.Errorf("invalid monitoring level %q", p.Monitoring.ClusterMonitoringLevel))
	}
	if p.s3LoggingInvalid() {
		errs = append(errs, errors.New("s3 logging requires a bucket"))
	}
	if err := p.ClientAuthentication.Validate(); err != nil {
		errs = append(errs, err)
	}
	if p.ClientAuthentication.TLSEnabled() {
		if err := p.CertificateDefinition.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.VpcConnectivity != nil {
		if err := p.VpcConnectivity.Validate(p.ClientAuthentication); err != nil {
			errs = append(errs, err)
		}
	}
	for _, key := range []string{propAllowEveryone, propAutoCreateTopics} {
		if _, ok := p.ServerProperties[key]; ok {
			errs = append(errs, fmt.Errorf("server property %s is managed by the cluster construct", key))
		}
	}
	if !p.KafkaClientLogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("invalid kafka client log level %q", p.KafkaClientLogLevel))
	}
	if !p.RemovalPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("invalid removal policy %q", p.RemovalPolicy))
	}
	if err := p.Handler.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// s3LoggingInvalid reports whether S3 logging is set without a bucket.
func (p *ProvisionedProps) s3LoggingInvalid() bool {
	return p.Logging.S3 != nil && p.Logging.S3.Bucket == ""
}

// MskProvisioned is a provisioned MSK cluster with its admin API.
type MskProvisioned struct {
	stack         *cfn.Stack
	id            string
	props         ProvisionedProps
	vpc           *vpc.Vpc
	brokerSGs     []any
	cluster       *cfn.Resource
	configuration *cfn.Resource
	brokers       *cfn.Resource
	api           *KafkaAPI
	adminACLs     []*cfn.Resource
}

// NewMskProvisioned declares a provisioned cluster.
func NewMskProvisioned(stack *cfn.Stack, id string, props ProvisionedProps) (*MskProvisioned, error) {
	props.applyDefaults()

	azCount := DefaultAZCount(props.Vpc, props.VpcProps)
	if azCount > 3 {
		azCount = 3
	}
	if props.NumberOfBrokerNodes == 0 {
		props.NumberOfBrokerNodes = azCount
	}
	if err := props.validate(azCount); err != nil {
		return nil, fmt.Errorf("invalid provisioned cluster %s: %w", id, err)
	}

	m := &MskProvisioned{stack: stack, id: id, props: props}
	var err error
	m.vpc, m.brokerSGs, err = networking(stack, id, props.Vpc, props.VpcProps, props.SecurityGroups, kafkaPorts)
	if err != nil {
		return nil, err
	}

	logGroup := props.Logging.CloudWatchLogGroup
	if logGroup == nil && !props.Logging.DisableCloudWatch {
		lg := cfn.NewResource("AWS::Logs::LogGroup", map[string]any{
			"RetentionInDays": brokerLogRetentionDays,
		}).ApplyRemovalPolicy(props.RemovalPolicy)
		if _, err := stack.Add(cfn.LogicalID(id, "BrokerLogGroup"), lg); err != nil {
			return nil, err
		}
		logGroup = lg.Ref()
	}

	allowEveryone := *props.AllowEveryoneIfNoAclFound
	locking := !allowEveryone && props.ClientAuthentication.TLSEnabled()
	// The admin ACLs are written through mTLS, so the first revision must
	// stay open until they exist.
	initialAllow := allowEveryone || locking
	m.configuration = cfn.NewResource("AWS::MSK::Configuration", map[string]any{
		"Name":              props.ClusterName + "-config",
		"KafkaVersionsList": []any{string(props.KafkaVersion)},
		"ServerProperties":  serverProperties(props.ServerProperties, initialAllow),
	})
	if _, err := stack.Add(cfn.LogicalID(id, "Configuration"), m.configuration); err != nil {
		return nil, err
	}

	m.cluster = cfn.NewResource("AWS::MSK::Cluster", m.clusterProperties(logGroup)).ApplyRemovalPolicy(props.RemovalPolicy)
	if _, err := stack.Add(cfn.LogicalID(id, "Cluster"), m.cluster); err != nil {
		return nil, err
	}

	var secret any
	if props.CertificateDefinition != nil {
		secret = props.CertificateDefinition.SecretCertificate
	}
	m.api, err = NewKafkaAPI(stack, cfn.LogicalID(id, "KafkaApi"), KafkaAPIProps{
		ClusterArn:            m.cluster.Ref(),
		ClusterType:           ClusterTypeProvisioned,
		Vpc:                   m.vpc,
		BrokerSecurityGroupID: m.brokerSGs[0],
		ClientAuthentication:  props.ClientAuthentication,
		CertificateSecret:     secret,
		KafkaClientLogLevel:   props.KafkaClientLogLevel,
		RemovalPolicy:         props.RemovalPolicy,
		Handler:               props.Handler,
	})
	if err != nil {
		return nil, err
	}

	if props.ClientAuthentication.TLSEnabled() {
		if err := m.addAdminACLs(); err != nil {
			return nil, err
		}
	}
	if locking {
		if err := m.lockCluster(); err != nil {
			return nil, err
		}
	}

	m.brokers, err = m.api.bootstrapBrokers(cfn.LogicalID(id, "BootstrapBrokers"))
	if err != nil {
		return nil, err
	}
	m.brokers.AddDependency(m.cluster.LogicalID())
	if err := addClusterOutputs(stack, id, m.ClusterArn(), m.brokers, props.ClientAuthentication.Methods()); err != nil {
		return nil, err
	}
	return m, nil
}

// DefaultAZCount returns the number of AZs a cluster in v, or in a VPC
// created from props, spans.
func DefaultAZCount(v *vpc.Vpc, props vpc.Props) int {
	if v != nil {
		return v.AvailabilityZoneCount()
	}
	if props.MaxAZs > 0 {
		return props.MaxAZs
	}
	return vpc.DefaultMaxAZs
}

func serverProperties(user map[string]string, allowEveryone bool) string {
	lines := []string{
		propAutoCreateTopics + "=false",
		fmt.Sprintf("%s=%t", propAllowEveryone, allowEveryone),
	}
	for _, k := range slices.Sorted(maps.Keys(user)) {
		lines = append(lines, k+"="+user[k])
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *MskProvisioned) clusterProperties(logGroup any) map[string]any {
	p := m.props
	ebs := map[string]any{"VolumeSize": p.EbsStorage.VolumeSize}
	brokerNodes := map[string]any{
		"InstanceType":   string(p.BrokerInstanceType),
		"ClientSubnets":  clientSubnets(m.vpc),
		"SecurityGroups": append([]any(nil), m.brokerSGs...),
		"StorageInfo":    map[string]any{"EBSStorageInfo": ebs},
	}
	if p.VpcConnectivity != nil {
		brokerNodes["ConnectivityInfo"] = map[string]any{"VpcConnectivity": p.VpcConnectivity.Property()}
	}

	encryption := map[string]any{
		"EncryptionInTransit": map[string]any{"ClientBroker": "TLS", "InCluster": true},
	}
	if p.EbsStorage.EncryptionKeyArn != nil && p.EbsStorage.EncryptionKeyArn != "" {
		encryption["EncryptionAtRest"] = map[string]any{"DataVolumeKMSKeyId": p.EbsStorage.EncryptionKeyArn}
	}

	brokerLogs := map[string]any{}
	if logGroup != nil {
		brokerLogs["CloudWatchLogs"] = map[string]any{"Enabled": true, "LogGroup": logGroup}
	}
	if p.Logging.FirehoseDeliveryStreamName != "" {
		brokerLogs["Firehose"] = map[string]any{"Enabled": true, "DeliveryStream": p.Logging.FirehoseDeliveryStreamName}
	}
	if p.Logging.S3 != nil {
		s3 := map[string]any{"Enabled": true, "Bucket": p.Logging.S3.Bucket}
		if p.Logging.S3.Prefix != "" {
			s3["Prefix"] = p.Logging.S3.Prefix
		}
		brokerLogs["S3"] = s3
	}

	props := map[string]any{
		"ClusterName":          p.ClusterName,
		"KafkaVersion":         string(p.KafkaVersion),
		"NumberOfBrokerNodes":  p.NumberOfBrokerNodes,
		"BrokerNodeGroupInfo":  brokerNodes,
		"EncryptionInfo":       encryption,
		"ClientAuthentication": p.ClientAuthentication.Property(),
		"ConfigurationInfo": map[string]any{
			"Arn":      m.configuration.GetAtt("Arn"),
			"Revision": m.configuration.GetAtt("LatestRevision.Revision"),
		},
		"EnhancedMonitoring": string(p.Monitoring.ClusterMonitoringLevel),
		"StorageMode":        string(p.StorageMode),
	}
	if p.Monitoring.EnablePrometheusJmxExporter || p.Monitoring.EnablePrometheusNodeExporter {
		props["OpenMonitoring"] = map[string]any{"Prometheus": map[string]any{
			"JmxExporter":  map[string]any{"EnabledInBroker": p.Monitoring.EnablePrometheusJmxExporter},
			"NodeExporter": map[string]any{"EnabledInBroker": p.Monitoring.EnablePrometheusNodeExporter},
		}}
	}
	if len(brokerLogs) > 0 {
		props["LoggingInfo"] = map[string]any{"BrokerLogs": brokerLogs}
	}
	return props
}

// addAdminACLs grants the handler and ACL admin principals full rights.
func (m *MskProvisioned) addAdminACLs() error {
	def := m.props.CertificateDefinition
	principals := []string{def.AdminPrincipal}
	if def.AclAdminPrincipal != def.AdminPrincipal {
		principals = append(principals, def.AclAdminPrincipal)
	}
	targets := []struct {
		suffix       string
		resourceType AclResourceType
		name         string
	}{
		{"Cluster", AclResourceCluster, AdminClusterResource},
		{"Topics", AclResourceTopic, "*"},
		{"Groups", AclResourceGroup, "*"},
	}
	for i, principal := range principals {
		role := "Admin"
		if i > 0 {
			role = "AclAdmin"
		}
		for _, t := range targets {
			r, err := m.api.SetACL(cfn.LogicalID(m.id, role, "Acl", t.suffix), AuthenticationMTLS, Acl{
				ResourceType:        t.resourceType,
				ResourceName:        t.name,
				ResourcePatternType: ResourcePatternLiteral,
				Principal:           UserPrincipal(principal),
				Host:                AnyHost,
				Operation:           AclOperationAll,
				PermissionType:      AclPermissionAllow,
			}, m.props.RemovalPolicy)
			if err != nil {
				return fmt.Errorf("failed to add admin acl: %w", err)
			}
			r.AddDependency(m.cluster.LogicalID())
			m.adminACLs = append(m.adminACLs, r)
		}
	}
	return nil
}

// lockCluster applies a configuration revision that denies access without a
// matching ACL, after the admin ACLs are in place.
func (m *MskProvisioned) lockCluster() error {
	locked := cfn.NewResource("AWS::MSK::Configuration", map[string]any{
		"Name":              m.props.ClusterName + "-acl-locked",
		"KafkaVersionsList": []any{string(m.props.KafkaVersion)},
		"ServerProperties":  serverProperties(m.props.ServerProperties, false),
	})
	if _, err := m.stack.Add(cfn.LogicalID(m.id, "LockedConfiguration"), locked); err != nil {
		return err
	}
	p, err := m.api.provider(AuthenticationMTLS)
	if err != nil {
		return err
	}
	update, err := m.api.customResource(cfn.LogicalID(m.id, "ConfigurationUpdate"), ResourceTypeClusterConfigurationUpdate, p, map[string]any{
		"configurationArn":      locked.GetAtt("Arn"),
		"configurationRevision": locked.GetAtt("LatestRevision.Revision"),
	}, cfn.RemovalPolicyDestroy)
	if err != nil {
		return err
	}
	for _, acl := range m.adminACLs {
		update.AddDependency(acl.LogicalID())
	}
	return nil
}

// SetTopic declares a topic on the cluster.
func (m *MskProvisioned) SetTopic(id string, auth Authentication, topic MskTopic, opts TopicOptions) (*cfn.Resource, error) {
	r, err := m.api.SetTopic(cfn.LogicalID(m.id, id), auth, topic, opts)
	if err != nil {
		return nil, err
	}
	m.dependOnCluster(r)
	return r, nil
}

// SetACL declares an ACL entry on the cluster.
func (m *MskProvisioned) SetACL(id string, auth Authentication, acl Acl, removalPolicy cfn.RemovalPolicy) (*cfn.Resource, error) {
	r, err := m.api.SetACL(cfn.LogicalID(m.id, id), auth, acl, removalPolicy)
	if err != nil {
		return nil, err
	}
	m.dependOnCluster(r)
	return r, nil
}

// GrantProduce allows principal to write to topic.
func (m *MskProvisioned) GrantProduce(id, topic string, auth Authentication, principal Principal, opts GrantOptions) ([]*cfn.Resource, error) {
	rs, err := m.api.GrantProduce(cfn.LogicalID(m.id, id), topic, auth, principal, opts)
	for _, r := range rs {
		m.dependOnCluster(r)
	}
	return rs, err
}

// GrantConsume allows principal to read from topic.
func (m *MskProvisioned) GrantConsume(id, topic string, auth Authentication, principal Principal, opts GrantOptions) ([]*cfn.Resource, error) {
	rs, err := m.api.GrantConsume(cfn.LogicalID(m.id, id), topic, auth, principal, opts)
	for _, r := range rs {
		m.dependOnCluster(r)
	}
	return rs, err
}

// dependOnCluster orders custom resources after the cluster and its admin ACLs.
func (m *MskProvisioned) dependOnCluster(r *cfn.Resource) {
	r.AddDependency(m.cluster.LogicalID())
	for _, acl := range m.adminACLs {
		r.AddDependency(acl.LogicalID())
	}
}

// AddClusterPolicy attaches a resource policy to the cluster.
func (m *MskProvisioned) AddClusterPolicy(id string, doc *iam.PolicyDocument) (*cfn.Resource, error) {
	return addClusterPolicy(m.stack, cfn.LogicalID(m.id, id), m.ClusterArn(), doc)
}

// BootstrapBrokers returns the bootstrap broker string for auth.
func (m *MskProvisioned) BootstrapBrokers(auth Authentication) (any, error) {
	if !m.props.ClientAuthentication.Supports(auth) {
		return nil, fmt.Errorf("%w: %s", ErrAuthNotEnabled, auth)
	}
	return m.brokers.GetAtt(brokerAttribute(auth)), nil
}

// ClusterArn returns the cluster ARN.
func (m *MskProvisioned) ClusterArn() any { return m.cluster.Ref() }

// ClusterName returns the physical cluster name.
func (m *MskProvisioned) ClusterName() string { return m.props.ClusterName }

// Vpc returns the VPC the brokers run in.
func (m *MskProvisioned) Vpc() *vpc.Vpc { return m.vpc }

// BrokerSecurityGroupID returns the security group admin handlers connect through.
func (m *MskProvisioned) BrokerSecurityGroupID() any { return m.brokerSGs[0] }

// KafkaAPI returns the embedded admin API.
func (m *MskProvisioned) KafkaAPI() *KafkaAPI { return m.api }

// Props returns the props after defaults were applied.
func (m *MskProvisioned) Props() ProvisionedProps { return m.props }
