// Package benchmarks provides timing estimates for stack deployments.
package benchmarks

import (
	"strings"
	"time"
)

// DefaultTimings are typical create durations by resource type (seconds).
var DefaultTimings = map[string]int{
	"AWS::EC2::VPC":                         15,
	"AWS::EC2::Subnet":                      10,
	"AWS::EC2::InternetGateway":             15,
	"AWS::EC2::VPCGatewayAttachment":        20,
	"AWS::EC2::EIP":                         10,
	"AWS::EC2::NatGateway":                  120,
	"AWS::EC2::RouteTable":                  10,
	"AWS::EC2::Route":                       5,
	"AWS::EC2::SubnetRouteTableAssociation": 5,
	"AWS::EC2::SecurityGroup":               10,
	"AWS::EC2::SecurityGroupIngress":        5,
	"AWS::EC2::FlowLog":                     10,
	"AWS::IAM::Role":                        20,
	"AWS::IAM::Policy":                      20,
	"AWS::Logs::LogGroup":                   5,
	"AWS::Lambda::Function":                 30,
	"AWS::MSK::Configuration":               5,
	"AWS::MSK::Cluster":                     1800,
	"AWS::MSK::ServerlessCluster":           300,
	"AWS::MSK::ClusterPolicy":               10,
	"Custom::MskBootstrapBrokers":           10,
	"Custom::MskTopic":                      30,
	"Custom::MskAcl":                        15,
	"Custom::MskClusterConfigurationUpdate": 600,
}

// defaultTiming is used for resource types missing from DefaultTimings.
const defaultTiming = 10

// Stage groups resource types that CloudFormation creates in parallel.
// A stage starts when the one before it is done.
type Stage int

const (
	// StageNetwork holds the VPC, IAM and log resources.
	StageNetwork Stage = iota
	// StageCluster holds the cluster and the admin handler function.
	StageCluster
	// StageAdmin holds resources written through the cluster: topics,
	// ACLs, broker lookups and cluster policies.
	StageAdmin
)

// Stages lists the stages in deployment order.
var Stages = []Stage{StageNetwork, StageCluster, StageAdmin}

// StageOf returns the stage of a resource type.
func StageOf(resourceType string) Stage {
	switch {
	case strings.HasPrefix(resourceType, "Custom::"), resourceType == "AWS::MSK::ClusterPolicy":
		return StageAdmin
	case strings.HasPrefix(resourceType, "AWS::MSK::"), resourceType == "AWS::Lambda::Function":
		return StageCluster
	default:
		return StageNetwork
	}
}

// Expected returns the benchmark duration of a resource type.
func Expected(resourceType string) time.Duration {
	secs, ok := DefaultTimings[resourceType]
	if !ok {
		secs = defaultTiming
	}
	return time.Duration(secs) * time.Second
}

// Record is the observed progress of one resource. A zero EndedAt means
// the resource is still in progress; a zero StartedAt means it has not
// started.
type Record struct {
	ResourceType string
	StartedAt    time.Time
	EndedAt      time.Time
}

func (r Record) started() bool { return !r.StartedAt.IsZero() }
func (r Record) done() bool    { return !r.EndedAt.IsZero() }

// PerformanceScale derives a speed multiplier from observed-vs-expected durations.
// Example: expected 30m, observed 45m => scale=1.5 (future ETAs are stretched by 50%).
func PerformanceScale(records []Record, now time.Time) float64 {
	var expectedTotal, actualTotal time.Duration

	for _, r := range records {
		if !r.started() {
			continue
		}
		expected := Expected(r.ResourceType)
		if r.done() {
			expectedTotal += expected
			actualTotal += r.EndedAt.Sub(r.StartedAt)
			continue
		}
		// Fold overruns in immediately so the ETA adapts quickly.
		if elapsed := now.Sub(r.StartedAt); elapsed > expected {
			expectedTotal += expected
			actualTotal += elapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// EstimateRemaining calculates the time left: per stage, the longest
// remaining resource, summed over the stages.
func EstimateRemaining(records []Record, now time.Time) time.Duration {
	return EstimateRemainingWithScale(records, now, PerformanceScale(records, now))
}

// EstimateRemainingWithScale calculates the ETA while applying a performance scale factor.
func EstimateRemainingWithScale(records []Record, now time.Time, scale float64) time.Duration {
	longest := make(map[Stage]time.Duration)
	for _, r := range records {
		if r.done() {
			continue
		}
		remaining := time.Duration(float64(Expected(r.ResourceType)) * scale)
		if r.started() {
			remaining -= now.Sub(r.StartedAt)
			if remaining < 0 {
				remaining = 0
			}
		}
		stage := StageOf(r.ResourceType)
		if remaining > longest[stage] {
			longest[stage] = remaining
		}
	}

	var total time.Duration
	for _, stage := range Stages {
		total += longest[stage]
	}
	return total
}

// TotalEstimate returns the estimated deployment time of a set of
// resource types.
func TotalEstimate(resourceTypes []string) time.Duration {
	records := make([]Record, len(resourceTypes))
	for i, t := range resourceTypes {
		records[i] = Record{ResourceType: t}
	}
	return EstimateRemainingWithScale(records, time.Time{}, 1.0)
}
