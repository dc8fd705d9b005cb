package naming

import (
	"strings"
	"testing"
	"time"
)

func TestNamingFunctions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 5, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "DiffChangeSet",
			got:      DiffChangeSet(now),
			expected: "mskstack-diff-20260301113005",
		},
		{
			name:     "E2EStack",
			got:      E2EStack(now),
			expected: "mskstack-e2e-1772364605",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

func TestStagedTemplateKey(t *testing.T) {
	key := StagedTemplateKey("mskstack/", "orders-kafka", []byte(`{}`))

	if !strings.HasPrefix(key, "mskstack/orders-kafka-") || !strings.HasSuffix(key, ".json") {
		t.Errorf("unexpected key %q", key)
	}
	if len(key) != len("mskstack/orders-kafka-")+16+len(".json") {
		t.Errorf("expected a 16 character digest in %q", key)
	}
	if key != StagedTemplateKey("mskstack/", "orders-kafka", []byte(`{}`)) {
		t.Error("expected the same key for the same body")
	}
	if key == StagedTemplateKey("mskstack/", "orders-kafka", []byte(`{"a":1}`)) {
		t.Error("expected a different key for a different body")
	}
}
