package msk

import (
	"fmt"
	"slices"
	"strings"
)

// KafkaVersion is an Apache Kafka version supported by MSK provisioned clusters.
type KafkaVersion string

// Supported versions.
const (
	KafkaV1_1_1       KafkaVersion = "1.1.1"
	KafkaV2_1_0       KafkaVersion = "2.1.0"
	KafkaV2_2_1       KafkaVersion = "2.2.1"
	KafkaV2_3_1       KafkaVersion = "2.3.1"
	KafkaV2_4_1_1     KafkaVersion = "2.4.1.1"
	KafkaV2_5_1       KafkaVersion = "2.5.1"
	KafkaV2_6_0       KafkaVersion = "2.6.0"
	KafkaV2_6_1       KafkaVersion = "2.6.1"
	KafkaV2_6_2       KafkaVersion = "2.6.2"
	KafkaV2_6_3       KafkaVersion = "2.6.3"
	KafkaV2_7_0       KafkaVersion = "2.7.0"
	KafkaV2_7_1       KafkaVersion = "2.7.1"
	KafkaV2_7_2       KafkaVersion = "2.7.2"
	KafkaV2_8_0       KafkaVersion = "2.8.0"
	KafkaV2_8_1       KafkaVersion = "2.8.1"
	KafkaV2_8_2Tiered KafkaVersion = "2.8.2.tiered"
	KafkaV3_1_1       KafkaVersion = "3.1.1"
	KafkaV3_2_0       KafkaVersion = "3.2.0"
	KafkaV3_3_1       KafkaVersion = "3.3.1"
	KafkaV3_3_2       KafkaVersion = "3.3.2"
	KafkaV3_4_0       KafkaVersion = "3.4.0"
	KafkaV3_5_1       KafkaVersion = "3.5.1"
	KafkaV3_6_0       KafkaVersion = "3.6.0"
	KafkaV3_7_X       KafkaVersion = "3.7.x"
	KafkaV3_7_X_KRaft KafkaVersion = "3.7.x.kraft"
	KafkaV3_8_X       KafkaVersion = "3.8.x"
	KafkaV3_8_X_KRaft KafkaVersion = "3.8.x.kraft"
	KafkaV3_9_X       KafkaVersion = "3.9.x"
	KafkaV3_9_X_KRaft KafkaVersion = "3.9.x.kraft"
)

// DefaultKafkaVersion is used when no version is configured.
const DefaultKafkaVersion = KafkaV3_5_1

var kafkaVersions = []KafkaVersion{
	KafkaV1_1_1, KafkaV2_1_0, KafkaV2_2_1, KafkaV2_3_1, KafkaV2_4_1_1, KafkaV2_5_1,
	KafkaV2_6_0, KafkaV2_6_1, KafkaV2_6_2, KafkaV2_6_3, KafkaV2_7_0, KafkaV2_7_1,
	KafkaV2_7_2, KafkaV2_8_0, KafkaV2_8_1, KafkaV2_8_2Tiered, KafkaV3_1_1, KafkaV3_2_0,
	KafkaV3_3_1, KafkaV3_3_2, KafkaV3_4_0, KafkaV3_5_1, KafkaV3_6_0, KafkaV3_7_X,
	KafkaV3_7_X_KRaft, KafkaV3_8_X, KafkaV3_8_X_KRaft, KafkaV3_9_X, KafkaV3_9_X_KRaft,
}

// ValidKafkaVersions returns all supported versions, oldest first.
func ValidKafkaVersions() []KafkaVersion {
	return slices.Clone(kafkaVersions)
}

// IsValid returns true if the version is in the supported catalog.
func (v KafkaVersion) IsValid() bool {
	return slices.Contains(kafkaVersions, v)
}

// IsKRaft reports whether brokers run without ZooKeeper.
func (v KafkaVersion) IsKRaft() bool {
	return strings.HasSuffix(string(v), ".kraft")
}

// SupportsTieredStorage reports whether the version can use TIERED storage.
// Tiered storage is available on 2.8.2.tiered and on 3.6.0 and later.
func (v KafkaVersion) SupportsTieredStorage() bool {
	if v == KafkaV2_8_2Tiered {
		return true
	}
	i := slices.Index(kafkaVersions, v)
	return i >= slices.Index(kafkaVersions, KafkaV3_6_0)
}

// ParseKafkaVersion parses a version string.
func ParseKafkaVersion(s string) (KafkaVersion, error) {
	v := KafkaVersion(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("unsupported kafka version %q", s)
	}
	return v, nil
}
