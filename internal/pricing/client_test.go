package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/imamik/mskstack/pkg/msk"
)

const testSheet = `{
	"brokers": {"m5.large": 0.25, "kafka.m5.xlarge": 0.50},
	"natGatewayHour": 0.052
}`

func TestClient_FetchPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Error("Missing Accept header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(testSheet))
	}))
	defer server.Close()

	prices, err := NewClient(server.URL).FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("FetchPrices() error = %v", err)
	}

	if prices.Brokers[msk.InstanceM5Large] != 0.25 {
		t.Errorf("m5.large price = %.3f, want 0.25", prices.Brokers[msk.InstanceM5Large])
	}
	if prices.Brokers[msk.InstanceM5XLarge] != 0.50 {
		t.Errorf("m5.xlarge price = %.3f, want 0.50", prices.Brokers[msk.InstanceM5XLarge])
	}
	if prices.NatGatewayHour != 0.052 {
		t.Errorf("NatGatewayHour = %.3f, want 0.052", prices.NatGatewayHour)
	}

	// Unset prices keep their defaults.
	defaults := DefaultPrices()
	if prices.StorageGBMonth != defaults.StorageGBMonth {
		t.Errorf("StorageGBMonth = %.3f, want default %.3f", prices.StorageGBMonth, defaults.StorageGBMonth)
	}
	if prices.Brokers[msk.InstanceM7gLarge] != defaults.Brokers[msk.InstanceM7gLarge] {
		t.Error("m7g.large lost its default price")
	}
}

func TestClient_FetchPrices_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchPrices(context.Background())
	if err == nil {
		t.Error("FetchPrices() expected error for missing sheet")
	}
}

func TestParsePriceSheet_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
	}{
		{"invalid json", `{invalid json`},
		{"negative price", `{"brokers": {"kafka.m5.large": -1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePriceSheet([]byte(tt.sheet)); err == nil {
				t.Error("ParsePriceSheet() expected error")
			}
		})
	}
}

func TestLoadPrices_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	if err := os.WriteFile(path, []byte(testSheet), 0600); err != nil {
		t.Fatal(err)
	}

	prices, err := LoadPrices(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadPrices() error = %v", err)
	}
	if prices.Brokers[msk.InstanceM5Large] != 0.25 {
		t.Errorf("m5.large price = %.3f, want 0.25", prices.Brokers[msk.InstanceM5Large])
	}
}

func TestFetchOrDefault(t *testing.T) {
	defaults := DefaultPrices()

	if got := FetchOrDefault(context.Background(), ""); got.NatGatewayHour != defaults.NatGatewayHour {
		t.Error("FetchOrDefault(\"\") did not return defaults")
	}
	missing := filepath.Join(t.TempDir(), "missing.json")
	if got := FetchOrDefault(context.Background(), missing); got.NatGatewayHour != defaults.NatGatewayHour {
		t.Error("FetchOrDefault(missing) did not fall back to defaults")
	}
}
