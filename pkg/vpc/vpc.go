// Package vpc declares the networking an MSK cluster runs in.
package vpc

import (
	"errors"
	"fmt"

	"github.com/imamik/mskstack/pkg/cfn"
	"github.com/imamik/mskstack/pkg/iam"
)

const (
	// DefaultCIDR is the VPC range used when none is configured.
	DefaultCIDR = "10.0.0.0/16"
	// DefaultMaxAZs is the number of availability zones used when none is configured.
	DefaultMaxAZs = 3
	// DefaultFlowLogRetentionDays is the retention of the flow log group.
	DefaultFlowLogRetentionDays = 7

	minPrefixBits = 16
	maxPrefixBits = 20
	maxAZs        = 6
)

// Props configures NewDataVpc.
type Props struct {
	CIDR   string
	MaxAZs int
	// NatGateways defaults to one per AZ. Zero leaves private subnets without
	// outbound internet access.
	NatGateways          *int
	FlowLogs             *bool
	FlowLogRetentionDays int
	RemovalPolicy        cfn.RemovalPolicy
}

// Vpc is a VPC the cluster and its admin handlers are placed in.
type Vpc struct {
	vpcID            any
	cidr             string
	azCount          int
	publicSubnetIDs  []any
	privateSubnetIDs []any
	privateTables    []any
}

func (p *Props) applyDefaults() {
	if p.CIDR == "" {
		p.CIDR = DefaultCIDR
	}
	if p.MaxAZs == 0 {
		p.MaxAZs = DefaultMaxAZs
	}
	if p.NatGateways == nil {
		n := p.MaxAZs
		p.NatGateways = &n
	}
	if p.FlowLogs == nil {
		enabled := true
		p.FlowLogs = &enabled
	}
	if p.FlowLogRetentionDays == 0 {
		p.FlowLogRetentionDays = DefaultFlowLogRetentionDays
	}
}

// Validate checks the VPC properties after defaults are applied.
func (p *Props) Validate() error {
	prefix, err := parseIPv4Prefix(p.CIDR)
	if err != nil {
		return err
	}
	if prefix.Bits() < minPrefixBits || prefix.Bits() > maxPrefixBits {
		return fmt.Errorf("vpc CIDR %s must have a prefix between /%d and /%d", p.CIDR, minPrefixBits, maxPrefixBits)
	}
	if p.MaxAZs < 1 || p.MaxAZs > maxAZs {
		return fmt.Errorf("maxAZs must be between 1 and %d, got %d", maxAZs, p.MaxAZs)
	}
	if p.NatGateways != nil && (*p.NatGateways < 0 || *p.NatGateways > p.MaxAZs) {
		return fmt.Errorf("natGateways must be between 0 and %d, got %d", p.MaxAZs, *p.NatGateways)
	}
	if p.FlowLogRetentionDays < 0 {
		return errors.New("flowLogRetentionDays must not be negative")
	}
	if p.RemovalPolicy != "" && !p.RemovalPolicy.IsValid() {
		return fmt.Errorf("invalid removal policy %q", p.RemovalPolicy)
	}
	return nil
}

// NewDataVpc declares a VPC with one public and one private subnet per AZ.
// Public subnets are /24-sized slices at the start of the range and private
// subnets take the following eighths, so a /16 yields /24 public and /19
// private subnets.
func NewDataVpc(stack *cfn.Stack, id string, props Props) (*Vpc, error) {
	props.applyDefaults()
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vpc %s: %w", id, err)
	}

	b := &builder{stack: stack, id: id}
	v := &Vpc{cidr: props.CIDR, azCount: props.MaxAZs}

	vpcRes := b.add("Vpc", "AWS::EC2::VPC", map[string]any{
		"CidrBlock":          props.CIDR,
		"EnableDnsHostnames": true,
		"EnableDnsSupport":   true,
		"Tags":               nameTag(stack, id),
	})
	v.vpcID = vpcRes.Ref()

	igw := b.add("Igw", "AWS::EC2::InternetGateway", map[string]any{"Tags": nameTag(stack, id)})
	attach := b.add("VpcGatewayAttachment", "AWS::EC2::VPCGatewayAttachment", map[string]any{
		"VpcId":             v.vpcID,
		"InternetGatewayId": igw.Ref(),
	})

	var natIDs []any
	for i := range props.MaxAZs {
		az := cfn.Select(i, cfn.GetAZs(""))
		cidr, err := CIDRSubnet(props.CIDR, 8, i)
		if err != nil {
			return nil, fmt.Errorf("failed to compute public subnet %d: %w", i, err)
		}
		n := fmt.Sprint(i + 1)
		subnet := b.add("PublicSubnet"+n, "AWS::EC2::Subnet", map[string]any{
			"VpcId":               v.vpcID,
			"CidrBlock":           cidr,
			"AvailabilityZone":    az,
			"MapPublicIpOnLaunch": true,
		})
		table := b.add("PublicSubnet"+n+"RouteTable", "AWS::EC2::RouteTable", map[string]any{"VpcId": v.vpcID})
		b.add("PublicSubnet"+n+"RouteTableAssociation", "AWS::EC2::SubnetRouteTableAssociation", map[string]any{
			"RouteTableId": table.Ref(),
			"SubnetId":     subnet.Ref(),
		})
		route := b.add("PublicSubnet"+n+"DefaultRoute", "AWS::EC2::Route", map[string]any{
			"RouteTableId":         table.Ref(),
			"DestinationCidrBlock": "0.0.0.0/0",
			"GatewayId":            igw.Ref(),
		})
		route.AddDependency(attach.LogicalID())
		v.publicSubnetIDs = append(v.publicSubnetIDs, subnet.Ref())

		if i < *props.NatGateways {
			eip := b.add("PublicSubnet"+n+"Eip", "AWS::EC2::EIP", map[string]any{"Domain": "vpc"})
			nat := b.add("PublicSubnet"+n+"NatGateway", "AWS::EC2::NatGateway", map[string]any{
				"AllocationId": eip.GetAtt("AllocationId"),
				"SubnetId":     subnet.Ref(),
			})
			nat.AddDependency(route.LogicalID())
			natIDs = append(natIDs, nat.Ref())
		}
	}

	for i := range props.MaxAZs {
		cidr, err := CIDRSubnet(props.CIDR, 3, i+1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute private subnet %d: %w", i, err)
		}
		n := fmt.Sprint(i + 1)
		subnet := b.add("PrivateSubnet"+n, "AWS::EC2::Subnet", map[string]any{
			"VpcId":               v.vpcID,
			"CidrBlock":           cidr,
			"AvailabilityZone":    cfn.Select(i, cfn.GetAZs("")),
			"MapPublicIpOnLaunch": false,
		})
		table := b.add("PrivateSubnet"+n+"RouteTable", "AWS::EC2::RouteTable", map[string]any{"VpcId": v.vpcID})
		b.add("PrivateSubnet"+n+"RouteTableAssociation", "AWS::EC2::SubnetRouteTableAssociation", map[string]any{
			"RouteTableId": table.Ref(),
			"SubnetId":     subnet.Ref(),
		})
		if len(natIDs) > 0 {
			b.add("PrivateSubnet"+n+"DefaultRoute", "AWS::EC2::Route", map[string]any{
				"RouteTableId":         table.Ref(),
				"DestinationCidrBlock": "0.0.0.0/0",
				"NatGatewayId":         natIDs[i%len(natIDs)],
			})
		}
		v.privateSubnetIDs = append(v.privateSubnetIDs, subnet.Ref())
		v.privateTables = append(v.privateTables, table.Ref())
	}

	b.add("S3Endpoint", "AWS::EC2::VPCEndpoint", map[string]any{
		"ServiceName":     cfn.Sub("com.amazonaws.${AWS::Region}.s3"),
		"VpcId":           v.vpcID,
		"VpcEndpointType": "Gateway",
		"RouteTableIds":   append([]any(nil), v.privateTables...),
	})

	if *props.FlowLogs {
		if err := b.flowLogs(vpcRes, props); err != nil {
			return nil, err
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	return v, nil
}

func (b *builder) flowLogs(vpcRes *cfn.Resource, props Props) error {
	logGroup := b.add("FlowLogGroup", "AWS::Logs::LogGroup", map[string]any{
		"RetentionInDays": props.FlowLogRetentionDays,
	})
	logGroup.ApplyRemovalPolicy(props.RemovalPolicy.Or(cfn.RemovalPolicyDestroy))
	if b.err != nil {
		return b.err
	}

	role, err := iam.NewRole(b.stack, cfn.LogicalID(b.id, "FlowLogRole"), iam.RoleProps{
		AssumedBy: "vpc-flow-logs.amazonaws.com",
	})
	if err != nil {
		return fmt.Errorf("failed to create flow log role: %w", err)
	}
	if err := role.AddToPrincipalPolicy(iam.Allow([]string{
		"logs:CreateLogStream",
		"logs:PutLogEvents",
		"logs:DescribeLogStreams",
	}, logGroup.GetAtt("Arn"))); err != nil {
		return err
	}

	b.add("FlowLog", "AWS::EC2::FlowLog", map[string]any{
		"ResourceId":               vpcRes.Ref(),
		"ResourceType":             "VPC",
		"TrafficType":              "ALL",
		"LogDestinationType":       "cloud-watch-logs",
		"LogGroupName":             logGroup.Ref(),
		"DeliverLogsPermissionArn": role.Arn(),
	})
	return b.err
}

// FromAttributes wraps an existing VPC.
func FromAttributes(vpcID any, cidr string, privateSubnetIDs []any) (*Vpc, error) {
	if vpcID == nil || vpcID == "" {
		return nil, errors.New("vpc ID is required")
	}
	if len(privateSubnetIDs) == 0 {
		return nil, errors.New("at least one private subnet is required")
	}
	return &Vpc{
		vpcID:            vpcID,
		cidr:             cidr,
		azCount:          len(privateSubnetIDs),
		privateSubnetIDs: append([]any(nil), privateSubnetIDs...),
	}, nil
}

// VpcID returns the VPC ID.
func (v *Vpc) VpcID() any { return v.vpcID }

// CIDR returns the VPC range, or "" for an imported VPC without one.
func (v *Vpc) CIDR() string { return v.cidr }

// AvailabilityZoneCount returns the number of AZs the private subnets span.
func (v *Vpc) AvailabilityZoneCount() int { return v.azCount }

// PrivateSubnetIDs returns the private subnet IDs, one per AZ.
func (v *Vpc) PrivateSubnetIDs() []any { return append([]any(nil), v.privateSubnetIDs...) }

// PublicSubnetIDs returns the public subnet IDs; empty for imported VPCs.
func (v *Vpc) PublicSubnetIDs() []any { return append([]any(nil), v.publicSubnetIDs...) }

// builder adds resources under a common ID prefix and keeps the first error.
type builder struct {
	stack *cfn.Stack
	id    string
	err   error
}

func (b *builder) add(suffix, resourceType string, props map[string]any) *cfn.Resource {
	r := cfn.NewResource(resourceType, props)
	if b.err != nil {
		return r
	}
	if _, err := b.stack.Add(cfn.LogicalID(b.id, suffix), r); err != nil {
		b.err = err
	}
	return r
}

func nameTag(stack *cfn.Stack, id string) []any {
	return []any{map[string]any{"Key": "Name", "Value": stack.Name + "/" + id}}
}
