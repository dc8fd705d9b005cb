package msk

import (
	"fmt"
	"slices"
	"strings"
)

// BrokerInstanceType is an MSK broker instance type.
type BrokerInstanceType string

const (
	InstanceT3Small     BrokerInstanceType = "kafka.t3.small"
	InstanceM5Large     BrokerInstanceType = "kafka.m5.large"
	InstanceM5XLarge    BrokerInstanceType = "kafka.m5.xlarge"
	InstanceM52XLarge   BrokerInstanceType = "kafka.m5.2xlarge"
	InstanceM54XLarge   BrokerInstanceType = "kafka.m5.4xlarge"
	InstanceM58XLarge   BrokerInstanceType = "kafka.m5.8xlarge"
	InstanceM512XLarge  BrokerInstanceType = "kafka.m5.12xlarge"
	InstanceM516XLarge  BrokerInstanceType = "kafka.m5.16xlarge"
	InstanceM524XLarge  BrokerInstanceType = "kafka.m5.24xlarge"
	InstanceM7gLarge    BrokerInstanceType = "kafka.m7g.large"
	InstanceM7gXLarge   BrokerInstanceType = "kafka.m7g.xlarge"
	InstanceM7g2XLarge  BrokerInstanceType = "kafka.m7g.2xlarge"
	InstanceM7g4XLarge  BrokerInstanceType = "kafka.m7g.4xlarge"
	InstanceM7g8XLarge  BrokerInstanceType = "kafka.m7g.8xlarge"
	InstanceM7g12XLarge BrokerInstanceType = "kafka.m7g.12xlarge"
	InstanceM7g16XLarge BrokerInstanceType = "kafka.m7g.16xlarge"
)

// DefaultInstanceType is used when no broker instance type is configured.
const DefaultInstanceType = InstanceM5Large

// InstanceSpecs describes a broker instance type.
type InstanceSpecs struct {
	VCPU     int
	MemoryGB int
	// HourlyUSD is the approximate on-demand price per broker hour in us-east-1.
	HourlyUSD float64
}

var instanceSpecs = map[BrokerInstanceType]InstanceSpecs{
	InstanceT3Small:     {VCPU: 2, MemoryGB: 2, HourlyUSD: 0.0456},
	InstanceM5Large:     {VCPU: 2, MemoryGB: 8, HourlyUSD: 0.21},
	InstanceM5XLarge:    {VCPU: 4, MemoryGB: 16, HourlyUSD: 0.42},
	InstanceM52XLarge:   {VCPU: 8, MemoryGB: 32, HourlyUSD: 0.84},
	InstanceM54XLarge:   {VCPU: 16, MemoryGB: 64, HourlyUSD: 1.68},
	InstanceM58XLarge:   {VCPU: 32, MemoryGB: 128, HourlyUSD: 3.36},
	InstanceM512XLarge:  {VCPU: 48, MemoryGB: 192, HourlyUSD: 5.04},
	InstanceM516XLarge:  {VCPU: 64, MemoryGB: 256, HourlyUSD: 6.72},
	InstanceM524XLarge:  {VCPU: 96, MemoryGB: 384, HourlyUSD: 10.08},
	InstanceM7gLarge:    {VCPU: 2, MemoryGB: 8, HourlyUSD: 0.204},
	InstanceM7gXLarge:   {VCPU: 4, MemoryGB: 16, HourlyUSD: 0.408},
	InstanceM7g2XLarge:  {VCPU: 8, MemoryGB: 32, HourlyUSD: 0.816},
	InstanceM7g4XLarge:  {VCPU: 16, MemoryGB: 64, HourlyUSD: 1.632},
	InstanceM7g8XLarge:  {VCPU: 32, MemoryGB: 128, HourlyUSD: 3.264},
	InstanceM7g12XLarge: {VCPU: 48, MemoryGB: 192, HourlyUSD: 4.896},
	InstanceM7g16XLarge: {VCPU: 64, MemoryGB: 256, HourlyUSD: 6.528},
}

// ValidInstanceTypes returns all broker instance types, sorted by name.
func ValidInstanceTypes() []BrokerInstanceType {
	types := make([]BrokerInstanceType, 0, len(instanceSpecs))
	for t := range instanceSpecs {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// IsValid returns true if the instance type is in the catalog.
func (t BrokerInstanceType) IsValid() bool {
	_, ok := instanceSpecs[t]
	return ok
}

// Specs returns the instance specs; the zero value for unknown types.
func (t BrokerInstanceType) Specs() InstanceSpecs {
	return instanceSpecs[t]
}

// ParseBrokerInstanceType parses an instance type. The kafka. prefix is optional.
func ParseBrokerInstanceType(s string) (BrokerInstanceType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(name, "kafka.") {
		name = "kafka." + name
	}
	t := BrokerInstanceType(name)
	if !t.IsValid() {
		return "", fmt.Errorf("unsupported broker instance type %q", s)
	}
	return t, nil
}
