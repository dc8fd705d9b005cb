package pricing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/imamik/mskstack/internal/config"
)

func testEstimate() *Estimate {
	return &Estimate{
		StackName:   "orders-kafka",
		ClusterType: config.ClusterTypeProvisioned,
		Region:      "eu-west-1",
		Items: []LineItem{
			{Description: "Brokers", Quantity: 3, UnitType: "kafka.m5.large", UnitPrice: 153.30, Total: 459.90},
			{Description: "Broker Storage", Quantity: 3, UnitType: "100 GiB", UnitPrice: 10.00, Total: 30.00},
		},
		Total: 489.90,
		Notes: []string{"data transfer is not estimated"},
	}
}

func TestFormatter_Format(t *testing.T) {
	output := NewFormatter().Format(testEstimate())

	checks := []string{
		"orders-kafka",
		"provisioned",
		"eu-west-1",
		"Brokers",
		"kafka.m5.large",
		"Broker Storage",
		"489.90",
		"5878.80",
		"Note: data transfer is not estimated",
	}

	for _, check := range checks {
		if !strings.Contains(output, check) {
			t.Errorf("Output missing %q", check)
		}
	}
}

func TestFormatter_FormatCompact(t *testing.T) {
	output := NewFormatter().FormatCompact(testEstimate())

	want := "orders-kafka (provisioned): $489.90/mo ($5878.80/yr)"
	if output != want {
		t.Errorf("FormatCompact() = %q, want %q", output, want)
	}
}

func TestFormatter_FormatJSON(t *testing.T) {
	output := NewFormatter().FormatJSON(testEstimate())

	var decoded map[string]any
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("FormatJSON output is not valid JSON: %v", err)
	}
	if decoded["stack_name"] != "orders-kafka" {
		t.Errorf("stack_name = %v", decoded["stack_name"])
	}
	if decoded["currency"] != "USD" {
		t.Errorf("currency = %v", decoded["currency"])
	}
	if items, ok := decoded["items"].([]any); !ok || len(items) != 2 {
		t.Errorf("items = %v", decoded["items"])
	}
}

func TestFormatter_FormatJSON_NoItems(t *testing.T) {
	output := NewFormatter().FormatJSON(&Estimate{StackName: "admin", ClusterType: config.ClusterTypeExternal})
	if !strings.Contains(output, `"items": []`) {
		t.Errorf("FormatJSON should emit an empty items list, got %s", output)
	}
}
