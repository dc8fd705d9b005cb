package msk

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/IBM/sarama"
)

var topicNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,249}$`)

// ReplicaAssignment pins the replicas of one partition to broker IDs.
type ReplicaAssignment struct {
	Partition int     `yaml:"partition"`
	Replicas  []int32 `yaml:"replicas"`
}

// ConfigEntry is a topic-level configuration override.
type ConfigEntry struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// MskTopic describes a Kafka topic. Zero partitions or replication factor
// leave the choice to the broker defaults.
type MskTopic struct {
	Topic             string              `yaml:"topic"`
	NumPartitions     int                 `yaml:"numPartitions,omitempty"`
	ReplicationFactor int                 `yaml:"replicationFactor,omitempty"`
	ReplicaAssignment []ReplicaAssignment `yaml:"replicaAssignment,omitempty"`
	ConfigEntries     []ConfigEntry       `yaml:"configEntries,omitempty"`
}

// Validate checks the topic name, counts and assignments.
func (t MskTopic) Validate() error {
	var errs []error
	if t.Topic == "" {
		errs = append(errs, errors.New("topic name is required"))
	} else if !topicNameRegex.MatchString(t.Topic) || t.Topic == "." || t.Topic == ".." {
		errs = append(errs, fmt.Errorf("invalid topic name %q: use up to 249 of [a-zA-Z0-9._-]", t.Topic))
	}
	if t.NumPartitions < 0 {
		errs = append(errs, fmt.Errorf("numPartitions must not be negative, got %d", t.NumPartitions))
	}
	if t.ReplicationFactor < 0 || t.ReplicationFactor > 32767 {
		errs = append(errs, fmt.Errorf("replicationFactor out of range, got %d", t.ReplicationFactor))
	}
	if len(t.ReplicaAssignment) > 0 {
		if t.NumPartitions > 0 || t.ReplicationFactor > 0 {
			errs = append(errs, errors.New("replicaAssignment cannot be combined with numPartitions or replicationFactor"))
		}
		seen := make(map[int]bool, len(t.ReplicaAssignment))
		for _, ra := range t.ReplicaAssignment {
			if seen[ra.Partition] {
				errs = append(errs, fmt.Errorf("partition %d assigned twice", ra.Partition))
			}
			seen[ra.Partition] = true
			if len(ra.Replicas) == 0 {
				errs = append(errs, fmt.Errorf("partition %d has no replicas", ra.Partition))
			}
		}
	}
	names := make(map[string]bool, len(t.ConfigEntries))
	for _, c := range t.ConfigEntries {
		if c.Name == "" {
			errs = append(errs, errors.New("config entry name is required"))
		} else if names[c.Name] {
			errs = append(errs, fmt.Errorf("config entry %s set twice", c.Name))
		}
		names[c.Name] = true
	}
	return errors.Join(errs...)
}

// Partitions returns the number of partitions the topic will have, or 0
// when the broker default applies.
func (t MskTopic) Partitions() int {
	if len(t.ReplicaAssignment) > 0 {
		return len(t.ReplicaAssignment)
	}
	return t.NumPartitions
}

// Properties returns the topic in the shape the admin handler expects.
func (t MskTopic) Properties() map[string]any {
	props := map[string]any{"topic": t.Topic}
	if t.NumPartitions > 0 {
		props["numPartitions"] = t.NumPartitions
	}
	if t.ReplicationFactor > 0 {
		props["replicationFactor"] = t.ReplicationFactor
	}
	if len(t.ReplicaAssignment) > 0 {
		assignments := make([]any, 0, len(t.ReplicaAssignment))
		for _, ra := range t.ReplicaAssignment {
			replicas := make([]any, len(ra.Replicas))
			for i, r := range ra.Replicas {
				replicas[i] = int(r)
			}
			assignments = append(assignments, map[string]any{"partition": ra.Partition, "replicas": replicas})
		}
		props["replicaAssignment"] = assignments
	}
	if len(t.ConfigEntries) > 0 {
		entries := make([]any, 0, len(t.ConfigEntries))
		for _, c := range t.ConfigEntries {
			entries = append(entries, map[string]any{"name": c.Name, "value": c.Value})
		}
		props["configEntries"] = entries
	}
	return props
}

// Sarama converts the topic to a sarama.TopicDetail. Broker defaults are
// expressed as -1.
func (t MskTopic) Sarama() *sarama.TopicDetail {
	detail := &sarama.TopicDetail{
		NumPartitions:     -1,
		ReplicationFactor: -1,
	}
	if t.NumPartitions > 0 {
		detail.NumPartitions = int32(t.NumPartitions) // #nosec G115
	}
	if t.ReplicationFactor > 0 {
		detail.ReplicationFactor = int16(t.ReplicationFactor) // #nosec G115
	}
	if len(t.ReplicaAssignment) > 0 {
		detail.ReplicaAssignment = make(map[int32][]int32, len(t.ReplicaAssignment))
		for _, ra := range t.ReplicaAssignment {
			detail.ReplicaAssignment[int32(ra.Partition)] = slices.Clone(ra.Replicas) // #nosec G115
		}
	}
	if len(t.ConfigEntries) > 0 {
		detail.ConfigEntries = make(map[string]*string, len(t.ConfigEntries))
		for _, c := range t.ConfigEntries {
			v := c.Value
			detail.ConfigEntries[c.Name] = &v
		}
	}
	return detail
}
