package synth

import "github.com/imamik/mskstack/pkg/cfn"

// Output logical IDs added by the outputs phase. The cluster ARN and
// bootstrap broker outputs of created clusters are added by the constructs.
var (
	OutputVpcID                 = cfn.LogicalID(ClusterID, "VpcId")
	OutputPrivateSubnetIDs      = cfn.LogicalID(ClusterID, "PrivateSubnetIds")
	OutputBrokerSecurityGroupID = cfn.LogicalID(ClusterID, "BrokerSecurityGroupId")
	OutputClusterArn            = cfn.LogicalID(ClusterID, "ClusterArn")
)

func synthesizeOutputs(ctx *Context) error {
	s := ctx.Stack
	if ctx.State.VpcCreated {
		if err := s.AddOutput(OutputVpcID, cfn.Output{
			Value:       ctx.State.Vpc.VpcID(),
			Description: "VPC of the MSK cluster",
			Export:      &cfn.Export{Name: cfn.Sub("${AWS::StackName}-VpcId")},
		}); err != nil {
			return err
		}
		if err := s.AddOutput(OutputPrivateSubnetIDs, cfn.Output{
			Value:       cfn.Join(",", ctx.State.Vpc.PrivateSubnetIDs()...),
			Description: "Private subnets of the MSK cluster",
			Export:      &cfn.Export{Name: cfn.Sub("${AWS::StackName}-PrivateSubnetIds")},
		}); err != nil {
			return err
		}
	}

	if err := s.AddOutput(OutputBrokerSecurityGroupID, cfn.Output{
		Value:       ctx.State.Cluster.BrokerSecurityGroupID(),
		Description: "Security group admitting Kafka clients",
	}); err != nil {
		return err
	}

	// Created clusters export their ARN themselves.
	if _, ok := ctx.State.Cluster.(*external); ok {
		if err := s.AddOutput(OutputClusterArn, cfn.Output{
			Value:       ctx.State.Cluster.ClusterArn(),
			Description: "Administered MSK cluster ARN",
		}); err != nil {
			return err
		}
	}
	return nil
}
