package kafka

import (
	"fmt"

	"github.com/imamik/mskstack/pkg/msk"
)

// PartitionMismatch is a topic whose partition count differs from the
// declared one.
type PartitionMismatch struct {
	Topic    string `json:"topic"`
	Declared int    `json:"declared"`
	Actual   int    `json:"actual"`
}

// Report is the drift between declared and live Kafka resources.
type Report struct {
	// Topics and ACLs count the declared resources that were checked.
	Topics int `json:"topics"`
	ACLs   int `json:"acls"`

	MissingTopics       []string            `json:"missingTopics,omitempty"`
	PartitionMismatches []PartitionMismatch `json:"partitionMismatches,omitempty"`
	MissingACLs         []msk.Acl           `json:"missingAcls,omitempty"`
}

// Clean reports whether no drift was found.
func (r *Report) Clean() bool {
	return len(r.MissingTopics) == 0 && len(r.PartitionMismatches) == 0 && len(r.MissingACLs) == 0
}

// Problems returns one line per drifted resource.
func (r *Report) Problems() []string {
	var out []string
	for _, t := range r.MissingTopics {
		out = append(out, fmt.Sprintf("topic %s is missing", t))
	}
	for _, m := range r.PartitionMismatches {
		out = append(out, fmt.Sprintf("topic %s has %d partitions, declared %d", m.Topic, m.Actual, m.Declared))
	}
	for _, a := range r.MissingACLs {
		out = append(out, fmt.Sprintf("acl %s is missing", a))
	}
	return out
}

// Compare reports declared topics and ACLs that are missing or differ on
// the cluster. Live resources that were never declared are not drift.
// Topics declared with the broker default partition count only need to
// exist.
func Compare(topics []msk.MskTopic, acls []msk.Acl, liveTopics []Topic, liveACLs []msk.Acl) *Report {
	r := &Report{Topics: len(topics), ACLs: len(acls)}

	partitions := make(map[string]int, len(liveTopics))
	for _, t := range liveTopics {
		partitions[t.Name] = t.Partitions
	}
	for _, t := range topics {
		actual, ok := partitions[t.Topic]
		if !ok {
			r.MissingTopics = append(r.MissingTopics, t.Topic)
			continue
		}
		if want := t.Partitions(); want > 0 && want != actual {
			r.PartitionMismatches = append(r.PartitionMismatches, PartitionMismatch{
				Topic: t.Topic, Declared: want, Actual: actual,
			})
		}
	}

	live := make(map[string]bool, len(liveACLs))
	for _, a := range liveACLs {
		live[a.Key()] = true
	}
	seen := make(map[string]bool, len(acls))
	for _, a := range acls {
		key := a.Key()
		if live[key] || seen[key] {
			continue
		}
		seen[key] = true
		r.MissingACLs = append(r.MissingACLs, a)
	}
	return r
}
