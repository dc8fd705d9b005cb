package synth

import (
	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/vpc"
)

// ClusterID is the construct ID of the cluster; resource logical IDs of
// the cluster and its Kafka resources start with it.
const ClusterID = "Msk"

func synthesizeNetwork(ctx *Context) error {
	c := ctx.Config.Cluster
	if c.Vpc.Existing() {
		v, err := vpc.FromAttributes(c.Vpc.ID, c.Vpc.CIDR, stringsToAny(c.Vpc.PrivateSubnetIDs))
		if err != nil {
			return err
		}
		ctx.State.Vpc = v
		LogResourceImported(ctx.Observer, "network", "AWS::EC2::VPC", c.Vpc.ID)
		return nil
	}

	props := c.Vpc.Props()
	props.RemovalPolicy = c.RemovalPolicy
	id := cfn.LogicalID(ClusterID, "Vpc")
	v, err := vpc.NewDataVpc(ctx.Stack, id, props)
	if err != nil {
		return err
	}
	ctx.State.Vpc = v
	ctx.State.VpcCreated = true
	LogResourceDeclared(ctx.Observer, "network", "AWS::EC2::VPC", id)
	return nil
}

func stringsToAny(in []string) []any {
	if len(in) == 0 {
		return nil
	}
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// optional returns s, or nil when it is empty.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
