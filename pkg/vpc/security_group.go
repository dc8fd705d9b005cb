package vpc

import (
	"errors"
	"fmt"

	"github.com/imamik/mskstack/pkg/cfn"
)

// SecurityGroupProps configures NewSecurityGroup.
type SecurityGroupProps struct {
	VpcID            any
	Description      string
	AllowAllOutbound bool
}

// SecurityGroup is a security group declared in or imported into the stack.
type SecurityGroup struct {
	stack   *cfn.Stack
	id      string
	groupID any
	rules   int
}

// PortRange is an inclusive TCP port range.
type PortRange struct {
	From int
	To   int
}

// Port returns a single-port range.
func Port(p int) PortRange { return PortRange{From: p, To: p} }

func (r PortRange) validate() error {
	if r.From < 0 || r.To > 65535 || r.From > r.To {
		return fmt.Errorf("invalid port range %d-%d", r.From, r.To)
	}
	return nil
}

// NewSecurityGroup declares an AWS::EC2::SecurityGroup. Without
// AllowAllOutbound the group gets a single egress rule matching no traffic,
// since CloudFormation otherwise adds an allow-all rule.
func NewSecurityGroup(stack *cfn.Stack, id string, props SecurityGroupProps) (*SecurityGroup, error) {
	if props.VpcID == nil {
		return nil, errors.New("security group requires a VPC ID")
	}
	description := props.Description
	if description == "" {
		description = stack.Name + "/" + id
	}

	egress := map[string]any{
		"CidrIp":      "255.255.255.255/32",
		"Description": "Disallow all traffic",
		"IpProtocol":  "icmp",
		"FromPort":    252,
		"ToPort":      86,
	}
	if props.AllowAllOutbound {
		egress = map[string]any{
			"CidrIp":      "0.0.0.0/0",
			"Description": "Allow all outbound traffic by default",
			"IpProtocol":  "-1",
		}
	}

	r := cfn.NewResource("AWS::EC2::SecurityGroup", map[string]any{
		"GroupDescription":    description,
		"VpcId":               props.VpcID,
		"SecurityGroupEgress": []any{egress},
	})
	if _, err := stack.Add(id, r); err != nil {
		return nil, fmt.Errorf("failed to add security group: %w", err)
	}
	return &SecurityGroup{stack: stack, id: id, groupID: r.GetAtt("GroupId")}, nil
}

// SecurityGroupFromID references an existing security group. Ingress rules
// added to it are declared in stack under id.
func SecurityGroupFromID(stack *cfn.Stack, id string, groupID any) *SecurityGroup {
	return &SecurityGroup{stack: stack, id: id, groupID: groupID}
}

// GroupID returns the security group ID.
func (g *SecurityGroup) GroupID() any { return g.groupID }

// AddIngressFromSecurityGroup allows TCP traffic on ports from members of peer.
func (g *SecurityGroup) AddIngressFromSecurityGroup(id string, peer any, ports PortRange, description string) (*cfn.Resource, error) {
	return g.addIngress(id, map[string]any{"SourceSecurityGroupId": peer}, ports, description)
}

// AddIngressFromCIDR allows TCP traffic on ports from an IPv4 range.
func (g *SecurityGroup) AddIngressFromCIDR(id, cidr string, ports PortRange, description string) (*cfn.Resource, error) {
	if _, err := parseIPv4Prefix(cidr); err != nil {
		return nil, err
	}
	return g.addIngress(id, map[string]any{"CidrIp": cidr}, ports, description)
}

func (g *SecurityGroup) addIngress(id string, source map[string]any, ports PortRange, description string) (*cfn.Resource, error) {
	if err := ports.validate(); err != nil {
		return nil, err
	}
	props := map[string]any{
		"GroupId":    g.groupID,
		"IpProtocol": "tcp",
		"FromPort":   ports.From,
		"ToPort":     ports.To,
	}
	for k, v := range source {
		props[k] = v
	}
	if description != "" {
		props["Description"] = description
	}
	r := cfn.NewResource("AWS::EC2::SecurityGroupIngress", props)
	if _, err := g.stack.Add(cfn.LogicalID(g.id, id), r); err != nil {
		return nil, fmt.Errorf("failed to add ingress rule: %w", err)
	}
	g.rules++
	return r, nil
}

// IngressRuleCount returns the number of ingress rules added through this value.
func (g *SecurityGroup) IngressRuleCount() int { return g.rules }
