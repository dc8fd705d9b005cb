package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
	"github.com/aws/aws-sdk-go-v2/service/kafka/types"

	"github.com/imamik/mskstack/pkg/msk"
)

// ClusterInfo is the control plane view of an MSK cluster.
type ClusterInfo struct {
	Arn   string
	Name  string
	State string
	Type  msk.ClusterType

	// Provisioned clusters only.
	KafkaVersion string
	InstanceType string
	Brokers      int
}

// Active reports whether the cluster accepts client connections.
func (c *ClusterInfo) Active() bool {
	return c.State == string(types.ClusterStateActive)
}

// BootstrapBrokers holds the broker lists per authentication method.
type BootstrapBrokers struct {
	SaslIam   string
	SaslScram string
	TLS       string
	Plaintext string
}

// For returns the broker list for an admin authentication method.
func (b *BootstrapBrokers) For(auth msk.Authentication) ([]string, error) {
	var list string
	switch auth {
	case msk.AuthenticationIAM:
		list = b.SaslIam
	case msk.AuthenticationMTLS:
		list = b.TLS
	default:
		return nil, fmt.Errorf("%w: %q", msk.ErrUnsupportedAuth, auth)
	}
	if list == "" {
		return nil, fmt.Errorf("%w: cluster has no %s brokers", msk.ErrAuthNotEnabled, auth)
	}
	return strings.Split(list, ","), nil
}

// DescribeCluster returns the state of a cluster.
func (c *Clients) DescribeCluster(ctx context.Context, arn string) (*ClusterInfo, error) {
	var out *kafka.DescribeClusterV2Output
	err := c.call(ctx, "DescribeClusterV2", func() error {
		var err error
		out, err = c.Kafka.DescribeClusterV2(ctx, &kafka.DescribeClusterV2Input{ClusterArn: aws.String(arn)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe cluster %s: %w", arn, err)
	}
	ci := out.ClusterInfo
	if ci == nil {
		return nil, fmt.Errorf("cluster %s returned no description", arn)
	}

	info := &ClusterInfo{
		Arn:   aws.ToString(ci.ClusterArn),
		Name:  aws.ToString(ci.ClusterName),
		State: string(ci.State),
		Type:  msk.ClusterTypeProvisioned,
	}
	if ci.ClusterType == types.ClusterTypeServerless {
		info.Type = msk.ClusterTypeServerless
	}
	if p := ci.Provisioned; p != nil {
		info.Brokers = int(aws.ToInt32(p.NumberOfBrokerNodes))
		if p.CurrentBrokerSoftwareInfo != nil {
			info.KafkaVersion = aws.ToString(p.CurrentBrokerSoftwareInfo.KafkaVersion)
		}
		if p.BrokerNodeGroupInfo != nil {
			info.InstanceType = aws.ToString(p.BrokerNodeGroupInfo.InstanceType)
		}
	}
	return info, nil
}

// GetBootstrapBrokers returns the broker lists of a cluster.
func (c *Clients) GetBootstrapBrokers(ctx context.Context, arn string) (*BootstrapBrokers, error) {
	var out *kafka.GetBootstrapBrokersOutput
	err := c.call(ctx, "GetBootstrapBrokers", func() error {
		var err error
		out, err = c.Kafka.GetBootstrapBrokers(ctx, &kafka.GetBootstrapBrokersInput{ClusterArn: aws.String(arn)})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bootstrap brokers of %s: %w", arn, err)
	}
	return &BootstrapBrokers{
		SaslIam:   aws.ToString(out.BootstrapBrokerStringSaslIam),
		SaslScram: aws.ToString(out.BootstrapBrokerStringSaslScram),
		TLS:       aws.ToString(out.BootstrapBrokerStringTls),
		Plaintext: aws.ToString(out.BootstrapBrokerString),
	}, nil
}
