package msk

import (
	"fmt"
	"slices"
	"strings"
)

// Authentication is the method a Kafka admin handler or client uses to
// authenticate to the brokers.
type Authentication string

const (
	// AuthenticationIAM uses SASL/OAUTHBEARER with IAM credentials (port 9098).
	AuthenticationIAM Authentication = "iam"
	// AuthenticationMTLS uses TLS client certificates (port 9094).
	AuthenticationMTLS Authentication = "mtls"
)

// ValidAuthentications returns all authentication methods.
func ValidAuthentications() []Authentication {
	return []Authentication{AuthenticationIAM, AuthenticationMTLS}
}

// IsValid returns true if the authentication method is known.
func (a Authentication) IsValid() bool {
	switch a {
	case AuthenticationIAM, AuthenticationMTLS:
		return true
	default:
		return false
	}
}

// BrokerPort returns the broker port used with this authentication method.
func (a Authentication) BrokerPort() int {
	switch a {
	case AuthenticationIAM:
		return 9098
	case AuthenticationMTLS:
		return 9094
	default:
		return 0
	}
}

// ParseAuthentication parses iam or mtls case-insensitively.
func ParseAuthentication(s string) (Authentication, error) {
	a := Authentication(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("invalid authentication %q: must be iam or mtls", s)
	}
	return a, nil
}

// ClusterType distinguishes provisioned from serverless clusters.
type ClusterType string

const (
	ClusterTypeProvisioned ClusterType = "PROVISIONED"
	ClusterTypeServerless  ClusterType = "SERVERLESS"
)

// IsValid returns true if the cluster type is known.
func (c ClusterType) IsValid() bool {
	return c == ClusterTypeProvisioned || c == ClusterTypeServerless
}

// ParseClusterType parses a cluster type case-insensitively.
func ParseClusterType(s string) (ClusterType, error) {
	c := ClusterType(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid cluster type %q: must be PROVISIONED or SERVERLESS", s)
	}
	return c, nil
}

// StorageMode is the broker storage mode.
type StorageMode string

const (
	StorageModeLocal  StorageMode = "LOCAL"
	StorageModeTiered StorageMode = "TIERED"
)

// IsValid returns true if the storage mode is known.
func (s StorageMode) IsValid() bool {
	return s == StorageModeLocal || s == StorageModeTiered
}

// ParseStorageMode parses LOCAL or TIERED case-insensitively.
func ParseStorageMode(s string) (StorageMode, error) {
	m := StorageMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid storage mode %q: must be LOCAL or TIERED", s)
	}
	return m, nil
}

// ClusterMonitoringLevel is the enhanced monitoring level of a provisioned cluster.
type ClusterMonitoringLevel string

const (
	MonitoringDefault              ClusterMonitoringLevel = "DEFAULT"
	MonitoringPerBroker            ClusterMonitoringLevel = "PER_BROKER"
	MonitoringPerTopicPerBroker    ClusterMonitoringLevel = "PER_TOPIC_PER_BROKER"
	MonitoringPerTopicPerPartition ClusterMonitoringLevel = "PER_TOPIC_PER_PARTITION"
)

// ValidMonitoringLevels returns all monitoring levels.
func ValidMonitoringLevels() []ClusterMonitoringLevel {
	return []ClusterMonitoringLevel{
		MonitoringDefault, MonitoringPerBroker, MonitoringPerTopicPerBroker, MonitoringPerTopicPerPartition,
	}
}

// IsValid returns true if the monitoring level is known.
func (m ClusterMonitoringLevel) IsValid() bool {
	return slices.Contains(ValidMonitoringLevels(), m)
}

// ParseMonitoringLevel parses a monitoring level case-insensitively.
func ParseMonitoringLevel(s string) (ClusterMonitoringLevel, error) {
	m := ClusterMonitoringLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid monitoring level %q: must be one of %v", s, ValidMonitoringLevels())
	}
	return m, nil
}

// KafkaClientLogLevel is the log level of the admin handler's Kafka client.
type KafkaClientLogLevel string

const (
	LogLevelNothing KafkaClientLogLevel = "NOTHING"
	LogLevelError   KafkaClientLogLevel = "ERROR"
	LogLevelWarn    KafkaClientLogLevel = "WARN"
	LogLevelInfo    KafkaClientLogLevel = "INFO"
	LogLevelDebug   KafkaClientLogLevel = "DEBUG"
)

// DefaultLogLevel is used when no client log level is set.
const DefaultLogLevel = LogLevelWarn

// ValidLogLevels returns all client log levels.
func ValidLogLevels() []KafkaClientLogLevel {
	return []KafkaClientLogLevel{LogLevelNothing, LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug}
}

// IsValid returns true if the log level is known.
func (l KafkaClientLogLevel) IsValid() bool {
	return slices.Contains(ValidLogLevels(), l)
}

// Or returns l, or fallback when l is empty.
func (l KafkaClientLogLevel) Or(fallback KafkaClientLogLevel) KafkaClientLogLevel {
	if l == "" {
		return fallback
	}
	return l
}

// ParseLogLevel parses a client log level case-insensitively.
func ParseLogLevel(s string) (KafkaClientLogLevel, error) {
	l := KafkaClientLogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", fmt.Errorf("invalid kafka client log level %q: must be one of %v", s, ValidLogLevels())
	}
	return l, nil
}
