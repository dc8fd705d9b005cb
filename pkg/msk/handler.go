package msk

import (
	"errors"
	"fmt"
	"time"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

// Handler defaults.
const (
	DefaultHandlerRuntime      = "provided.al2023"
	DefaultHandlerEntrypoint   = "bootstrap"
	DefaultHandlerTimeout      = 5 * time.Minute
	DefaultHandlerMemorySize   = 512
	DefaultHandlerArchitecture = "arm64"

	maxHandlerTimeout       = 15 * time.Minute
	handlerLogRetentionDays = 14
)

// HandlerCode locates the Kafka admin handler package that backs the
// topic, ACL and broker lookup custom resources.
type HandlerCode struct {
	S3Bucket        string
	S3Key           string
	S3ObjectVersion string
	Runtime         string
	Handler         string
	Timeout         time.Duration
	MemorySize      int
	Architecture    string
}

func (h HandlerCode) withDefaults() HandlerCode {
	if h.Runtime == "" {
		h.Runtime = DefaultHandlerRuntime
	}
	if h.Handler == "" {
		h.Handler = DefaultHandlerEntrypoint
	}
	if h.Timeout == 0 {
		h.Timeout = DefaultHandlerTimeout
	}
	if h.MemorySize == 0 {
		h.MemorySize = DefaultHandlerMemorySize
	}
	if h.Architecture == "" {
		h.Architecture = DefaultHandlerArchitecture
	}
	return h
}

// Validate checks the code location and limits after defaults are applied.
func (h HandlerCode) Validate() error {
	h = h.withDefaults()
	var errs []error
	if h.S3Bucket == "" {
		errs = append(errs, errors.New("handler s3Bucket is required"))
	}
	if h.S3Key == "" {
		errs = append(errs, errors.New("handler s3Key is required"))
	}
	if h.Timeout < time.Second || h.Timeout > maxHandlerTimeout {
		errs = append(errs, fmt.Errorf("handler timeout must be between 1s and %s, got %s", maxHandlerTimeout, h.Timeout))
	}
	if h.MemorySize < 128 || h.MemorySize > 10240 {
		errs = append(errs, fmt.Errorf("handler memorySize must be between 128 and 10240 MB, got %d", h.MemorySize))
	}
	if h.Architecture != "arm64" && h.Architecture != "x86_64" {
		errs = append(errs, fmt.Errorf("handler architecture must be arm64 or x86_64, got %q", h.Architecture))
	}
	return errors.Join(errs...)
}

func (h HandlerCode) codeProperty() map[string]any {
	code := map[string]any{"S3Bucket": h.S3Bucket, "S3Key": h.S3Key}
	if h.S3ObjectVersion != "" {
		code["S3ObjectVersion"] = h.S3ObjectVersion
	}
	return code
}

// provider is the Lambda function that serves custom resources for one
// authentication method.
type provider struct {
	auth     Authentication
	function *cfn.Resource
	role     *iam.Role
	sg       *vpc.SecurityGroup
}

// ServiceToken returns the value custom resources use to reach the provider.
func (p *provider) ServiceToken() map[string]any {
	return p.function.GetAtt("Arn")
}

func (k *KafkaAPI) newProvider(auth Authentication) (*provider, error) {
	stack, props := k.stack, k.props
	prefix := cfn.LogicalID(k.id, string(auth), "Handler")
	h := props.Handler.withDefaults()

	sg, err := vpc.NewSecurityGroup(stack, prefix+"Sg", vpc.SecurityGroupProps{
		VpcID:            props.Vpc.VpcID(),
		Description:      fmt.Sprintf("Kafka admin handler (%s) for %s", auth, k.id),
		AllowAllOutbound: true,
	})
	if err != nil {
		return nil, err
	}
	brokers := vpc.SecurityGroupFromID(stack, cfn.LogicalID(k.id, "BrokerSg"), props.BrokerSecurityGroupID)
	if _, err := brokers.AddIngressFromSecurityGroup(cfn.LogicalID(string(auth), "HandlerIngress"),
		sg.GroupID(), vpc.Port(auth.BrokerPort()), fmt.Sprintf("Kafka admin handler (%s)", auth)); err != nil {
		return nil, err
	}

	logGroup := cfn.NewResource("AWS::Logs::LogGroup", map[string]any{
		"RetentionInDays": handlerLogRetentionDays,
	}).ApplyRemovalPolicy(props.RemovalPolicy)
	if _, err := stack.Add(prefix+"LogGroup", logGroup); err != nil {
		return nil, err
	}

	role, err := iam.NewRole(stack, prefix+"Role", iam.RoleProps{
		AssumedBy:   "lambda.amazonaws.com",
		Description: fmt.Sprintf("Kafka admin handler (%s) for %s", auth, k.id),
		ManagedPolicyArns: []any{
			iam.ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole"),
			iam.ManagedPolicyArn("service-role/AWSLambdaVPCAccessExecutionRole"),
		},
	})
	if err != nil {
		return nil, err
	}
	for _, s := range k.handlerStatements(auth) {
		if err := role.AddToPrincipalPolicy(s); err != nil {
			return nil, err
		}
	}

	env := map[string]any{
		"AUTHENTICATION": string(auth),
		"LOG_LEVEL":      string(props.KafkaClientLogLevel),
	}
	if auth == AuthenticationMTLS {
		env["SECRET_ARN"] = props.CertificateSecret
	}

	fn := cfn.NewResource("AWS::Lambda::Function", map[string]any{
		"Code":          h.codeProperty(),
		"Handler":       h.Handler,
		"Runtime":       h.Runtime,
		"Role":          role.Arn(),
		"Timeout":       int(h.Timeout / time.Second),
		"MemorySize":    h.MemorySize,
		"Architectures": []any{h.Architecture},
		"VpcConfig": map[string]any{
			"SubnetIds":        props.Vpc.PrivateSubnetIDs(),
			"SecurityGroupIds": []any{sg.GroupID()},
		},
		"LoggingConfig": map[string]any{
			"LogFormat": "JSON",
			"LogGroup":  logGroup.Ref(),
		},
		"Environment": map[string]any{"Variables": env},
	})
	fn.AddDependency(role.LogicalID())
	if _, err := stack.Add(prefix, fn); err != nil {
		return nil, err
	}

	return &provider{auth: auth, function: fn, role: role, sg: sg}, nil
}

// handlerStatements returns the permissions an admin handler needs.
func (k *KafkaAPI) handlerStatements(auth Authentication) []iam.Statement {
	arn := k.props.ClusterArn
	statements := []iam.Statement{
		iam.Allow([]string{
			"kafka:DescribeCluster",
			"kafka:DescribeClusterV2",
			"kafka:GetBootstrapBrokers",
			"kafka:UpdateClusterConfiguration",
		}, arn, cfn.Sub("arn:${AWS::Partition}:kafka:${AWS::Region}:${AWS::AccountId}:configuration/*")),
	}
	switch auth {
	case AuthenticationIAM:
		statements = append(statements,
			iam.Allow([]string{
				"kafka-cluster:Connect",
				"kafka-cluster:DescribeCluster",
				"kafka-cluster:AlterCluster",
				"kafka-cluster:DescribeClusterDynamicConfiguration",
				"kafka-cluster:AlterClusterDynamicConfiguration",
			}, arn),
			iam.Allow([]string{"kafka-cluster:*Topic*", "kafka-cluster:WriteData", "kafka-cluster:ReadData"}, k.topicArn("*")),
			iam.Allow([]string{"kafka-cluster:AlterGroup", "kafka-cluster:DescribeGroup"}, k.groupArn("*")),
		)
	case AuthenticationMTLS:
		statements = append(statements, iam.Allow([]string{
			"secretsmanager:GetSecretValue",
			"secretsmanager:DescribeSecret",
		}, k.props.CertificateSecret))
	}
	return statements
}
