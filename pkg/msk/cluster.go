package msk

import (
	"fmt"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
	"github.com/imamik/mskstack/pkg/vpc"
)

// Bootstrap broker attributes returned by the broker lookup custom resource.
const (
	AttrBootstrapBrokersSaslIam   = "BootstrapBrokerStringSaslIam"
	AttrBootstrapBrokersTLS       = "BootstrapBrokerStringTls"
	AttrBootstrapBrokersSaslScram = "BootstrapBrokerStringSaslScram"
)

var kafkaPorts = vpc.PortRange{From: 9092, To: 9098}

// networking resolves the VPC and broker security groups of a cluster,
// creating what the caller did not provide.
func networking(stack *cfn.Stack, id string, v *vpc.Vpc, vpcProps vpc.Props, securityGroups []any, ports vpc.PortRange) (*vpc.Vpc, []any, error) {
	if v == nil {
		var err error
		v, err = vpc.NewDataVpc(stack, cfn.LogicalID(id, "Vpc"), vpcProps)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(securityGroups) > 0 {
		return v, append([]any(nil), securityGroups...), nil
	}

	sg, err := vpc.NewSecurityGroup(stack, cfn.LogicalID(id, "BrokerSg"), vpc.SecurityGroupProps{
		VpcID:            v.VpcID(),
		Description:      fmt.Sprintf("MSK brokers of %s", id),
		AllowAllOutbound: true,
	})
	if err != nil {
		return nil, nil, err
	}
	if _, err := sg.AddIngressFromSecurityGroup("Self", sg.GroupID(), ports, "broker to broker"); err != nil {
		return nil, nil, err
	}
	if v.CIDR() != "" {
		if _, err := sg.AddIngressFromCIDR("VpcClients", v.CIDR(), ports, "clients in the VPC"); err != nil {
			return nil, nil, err
		}
	}
	return v, []any{sg.GroupID()}, nil
}

// clientSubnets returns at most three private subnets, the MSK limit for
// broker placement.
func clientSubnets(v *vpc.Vpc) []any {
	subnets := v.PrivateSubnetIDs()
	if len(subnets) > 3 {
		subnets = subnets[:3]
	}
	return subnets
}

func addClusterPolicy(stack *cfn.Stack, id string, clusterArn any, doc *iam.PolicyDocument) (*cfn.Resource, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cluster policy %s: %w", id, err)
	}
	r := cfn.NewResource("AWS::MSK::ClusterPolicy", map[string]any{
		"ClusterArn": clusterArn,
		"Policy":     doc.Value(),
	})
	if _, err := stack.Add(id, r); err != nil {
		return nil, fmt.Errorf("failed to add cluster policy: %w", err)
	}
	return r, nil
}

// bootstrapBrokers declares the broker lookup custom resource served by the
// provider of the first enabled method.
func (k *KafkaAPI) bootstrapBrokers(id string) (*cfn.Resource, error) {
	methods := k.props.ClientAuthentication.Methods()
	if len(methods) == 0 {
		return nil, ErrAuthNotEnabled
	}
	p, err := k.provider(methods[0])
	if err != nil {
		return nil, err
	}
	return k.customResource(id, ResourceTypeBootstrapBrokers, p, nil, cfn.RemovalPolicyDestroy)
}

func brokerAttribute(auth Authentication) string {
	if auth == AuthenticationMTLS {
		return AttrBootstrapBrokersTLS
	}
	return AttrBootstrapBrokersSaslIam
}

func addClusterOutputs(stack *cfn.Stack, id string, clusterArn any, brokers *cfn.Resource, methods []Authentication) error {
	if err := stack.AddOutput(cfn.LogicalID(id, "ClusterArn"), cfn.Output{
		Value:       clusterArn,
		Description: "MSK cluster ARN",
		Export:      &cfn.Export{Name: cfn.Sub("${AWS::StackName}-" + id + "-ClusterArn")},
	}); err != nil {
		return err
	}
	for _, auth := range methods {
		attr := brokerAttribute(auth)
		if err := stack.AddOutput(cfn.LogicalID(id, attr), cfn.Output{
			Value:       brokers.GetAtt(attr),
			Description: fmt.Sprintf("Bootstrap brokers (%s)", auth),
		}); err != nil {
			return err
		}
	}
	return nil
}
