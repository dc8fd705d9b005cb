package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imamik/mskstack/pkg/msk"
)

// WizardResult holds the user's choices from the wizard.
type WizardResult struct {
	Name         string
	Region       string
	ClusterType  ClusterType
	InstanceType msk.BrokerInstanceType
	Brokers      int
	MTLS         bool
	HandlerS3URI string
	Topics       string
}

// instanceTypeOptions lists the broker sizes offered by the wizard.
func instanceTypeOptions() []huh.Option[msk.BrokerInstanceType] {
	types := msk.ValidInstanceTypes()
	opts := make([]huh.Option[msk.BrokerInstanceType], 0, len(types))
	for _, t := range types {
		s := t.Specs()
		label := fmt.Sprintf("%s - %d vCPU, %dGB RAM (~$%.2f/h)", strings.TrimPrefix(string(t), "kafka."), s.VCPU, s.MemoryGB, s.HourlyUSD)
		opts = append(opts, huh.NewOption(label, t))
	}
	return opts
}

// RunWizard runs the interactive configuration wizard.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := DefaultWizardResult()

	form := huh.NewForm(
		// Stack identity
		huh.NewGroup(
			huh.NewInput().
				Title("Stack name").
				Description("CloudFormation stack name").
				Placeholder("kafka-platform").
				Value(&result.Name).
				Validate(validateStackName),
			huh.NewInput().
				Title("Region (optional)").
				Description("Leave empty to use the region of your AWS profile").
				Placeholder("eu-west-1").
				Value(&result.Region).
				Validate(validateRegion),
		),

		// Cluster type
		huh.NewGroup(
			huh.NewSelect[ClusterType]().
				Title("Cluster type").
				Description("provisioned: dedicated brokers | serverless: pay per use, IAM only").
				Options(
					huh.NewOption("Provisioned", ClusterTypeProvisioned),
					huh.NewOption("Serverless", ClusterTypeServerless),
				).
				Value(&result.ClusterType),
		),

		// Broker sizing, skipped for serverless
		huh.NewGroup(
			huh.NewSelect[msk.BrokerInstanceType]().
				Title("Broker size").
				Options(instanceTypeOptions()...).
				Value(&result.InstanceType),
			huh.NewSelect[int]().
				Title("Number of brokers").
				Description("Brokers are spread evenly across availability zones").
				Options(
					huh.NewOption("3 brokers", 3),
					huh.NewOption("6 brokers", 6),
					huh.NewOption("9 brokers", 9),
				).
				Value(&result.Brokers),
			huh.NewConfirm().
				Title("Enable mTLS client authentication?").
				Description("Adds Kafka ACL management. Needs a private CA and an admin certificate secret.").
				Value(&result.MTLS),
		).WithHideFunc(func() bool { return result.ClusterType == ClusterTypeServerless }),

		// Handler and topics
		huh.NewGroup(
			huh.NewInput().
				Title("Admin handler package").
				Description("S3 location of the Kafka admin handler zip").
				Placeholder("s3://my-artifacts/mskstack/handler.zip").
				Value(&result.HandlerS3URI).
				Validate(validateS3URI),
			huh.NewInput().
				Title("Topics (optional)").
				Description("Comma-separated topic names to create").
				Placeholder("orders,payments").
				Value(&result.Topics).
				Validate(validateTopicList),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// DefaultWizardResult returns the choices used when the wizard is skipped.
func DefaultWizardResult() *WizardResult {
	return &WizardResult{
		Name:         "kafka-platform",
		ClusterType:  ClusterTypeProvisioned,
		InstanceType: msk.DefaultInstanceType,
		Brokers:      3,
		HandlerS3URI: "s3://mskstack-artifacts/handler.zip",
	}
}

// ToConfig converts the wizard result to a Config. Only the choices are
// written; everything else is left to ApplyDefaults.
func (r *WizardResult) ToConfig() *Config {
	bucket, key, _ := splitS3URI(r.HandlerS3URI)
	cfg := &Config{
		Stack:   StackConfig{Name: r.Name, Region: r.Region},
		Handler: HandlerConfig{S3Bucket: bucket, S3Key: key},
		Cluster: ClusterConfig{Type: r.ClusterType},
	}

	if r.ClusterType == ClusterTypeProvisioned {
		p := &ProvisionedConfig{
			InstanceType:   r.InstanceType,
			Brokers:        r.Brokers,
			Authentication: AuthConfig{IAM: true},
		}
		if r.MTLS {
			p.Authentication.TLS = &TLSConfig{CertificateAuthorities: []string{"arn:aws:acm-pca:REGION:ACCOUNT:certificate-authority/REPLACE_ME"}}
			p.Certificate = &CertificateConfig{
				AdminPrincipal:    "CN=mskstack-admin",
				AclAdminPrincipal: "CN=mskstack-acl-admin",
				SecretArn:         "arn:aws:secretsmanager:REGION:ACCOUNT:secret:REPLACE_ME",
			}
		}
		cfg.Cluster.Provisioned = p
	}

	for _, name := range splitList(r.Topics) {
		cfg.Topics = append(cfg.Topics, TopicConfig{Name: name, Partitions: 3})
	}
	return cfg
}

// validateStackName validates the CloudFormation stack name.
func validateStackName(s string) error {
	if s == "" {
		return fmt.Errorf("stack name is required")
	}
	if !stackNameRegex.MatchString(s) {
		return fmt.Errorf("stack name must start with a letter and contain only letters, numbers, and hyphens")
	}
	return nil
}

// validateRegion validates the optional region.
func validateRegion(s string) error {
	if s == "" {
		return nil
	}
	if !regionRegex.MatchString(s) {
		return fmt.Errorf("invalid region format (expected eu-west-1)")
	}
	return nil
}

// validateS3URI validates an s3://bucket/key location.
func validateS3URI(s string) error {
	_, _, err := splitS3URI(s)
	return err
}

// validateTopicList validates a comma-separated list of topic names.
func validateTopicList(s string) error {
	for _, name := range splitList(s) {
		if err := (msk.MskTopic{Topic: name}).Validate(); err != nil {
			return fmt.Errorf("topic %q: %w", name, err)
		}
	}
	return nil
}

func splitS3URI(s string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(s, "s3://")
	if !ok {
		return "", "", fmt.Errorf("location must start with s3://")
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("location must be s3://bucket/key")
	}
	return bucket, key, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
