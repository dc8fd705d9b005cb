package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imamik/mskstack/internal/config"
)

// brokerList is the JSON shape of the brokers command.
type brokerList struct {
	ClusterArn string `json:"clusterArn"`
	SaslIam    string `json:"saslIam,omitempty"`
	SaslScram  string `json:"saslScram,omitempty"`
	TLS        string `json:"tls,omitempty"`
	Plaintext  string `json:"plaintext,omitempty"`
}

// Brokers prints the bootstrap broker strings of the stack's cluster.
func Brokers(ctx context.Context, configPath string, jsonOutput bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	timeouts := config.LoadTimeouts()

	s, err := newSession(ctx, cfg, timeouts, nil)
	if err != nil {
		return err
	}

	list, err := lookupBrokers(ctx, s.cloud, cfg, timeouts)
	if err != nil {
		return err
	}

	if jsonOutput {
		b, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(b))
		return nil
	}
	printBrokers(list)
	return nil
}

func lookupBrokers(ctx context.Context, cloud Cloud, cfg *config.Config, timeouts *config.Timeouts) (*brokerList, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Doctor)
	defer cancel()

	var outputs map[string]string
	if cfg.Cluster.Type != config.ClusterTypeExternal {
		info, err := cloud.DescribeStack(ctx, cfg.Stack.Name)
		if err != nil {
			return nil, err
		}
		outputs = info.Outputs
	}
	arn, err := clusterArn(cfg, outputs)
	if err != nil {
		return nil, err
	}

	b, err := cloud.GetBootstrapBrokers(ctx, arn)
	if err != nil {
		return nil, err
	}
	return &brokerList{
		ClusterArn: arn,
		SaslIam:    b.SaslIam,
		SaslScram:  b.SaslScram,
		TLS:        b.TLS,
		Plaintext:  b.Plaintext,
	}, nil
}

func printBrokers(list *brokerList) {
	fmt.Printf("Cluster: %s\n\n", list.ClusterArn)
	rows := []struct{ name, value string }{
		{"SASL/IAM", list.SaslIam},
		{"SASL/SCRAM", list.SaslScram},
		{"TLS", list.TLS},
		{"Plaintext", list.Plaintext},
	}
	for _, r := range rows {
		if r.value != "" {
			fmt.Printf("  %-11s %s\n", r.name, r.value)
		}
	}
}
