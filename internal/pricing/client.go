package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/imamik/mskstack/pkg/msk"
)

// Client fetches a JSON price sheet over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new pricing client for a price sheet URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchPrices fetches the price sheet.
func (c *Client) FetchPrices(ctx context.Context) (*Prices, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pricing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price sheet returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return ParsePriceSheet(body)
}

// ParsePriceSheet parses a price sheet. Prices the sheet leaves out keep
// their defaults, so a sheet may override a single broker type.
func ParsePriceSheet(data []byte) (*Prices, error) {
	var sheet Prices
	if err := json.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("failed to parse price sheet: %w", err)
	}

	prices := DefaultPrices()
	for t, p := range sheet.Brokers {
		if p < 0 {
			return nil, fmt.Errorf("price of %s must not be negative", t)
		}
		if parsed, err := msk.ParseBrokerInstanceType(string(t)); err == nil {
			t = parsed
		}
		prices.Brokers[t] = p
	}
	override(&prices.StorageGBMonth, sheet.StorageGBMonth)
	override(&prices.ServerlessClusterHour, sheet.ServerlessClusterHour)
	override(&prices.ServerlessPartitionHour, sheet.ServerlessPartitionHour)
	override(&prices.NatGatewayHour, sheet.NatGatewayHour)
	return prices, nil
}

func override(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// LoadPrices reads a price sheet from an http(s) URL or a local file.
func LoadPrices(ctx context.Context, source string) (*Prices, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewClient(source).FetchPrices(ctx)
	}
	// #nosec G304
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read price sheet: %w", err)
	}
	return ParsePriceSheet(data)
}

// FetchOrDefault loads the price sheet, falling back to defaults when
// source is empty or cannot be read.
func FetchOrDefault(ctx context.Context, source string) *Prices {
	if source == "" {
		return DefaultPrices()
	}

	prices, err := LoadPrices(ctx, source)
	if err != nil {
		return DefaultPrices()
	}

	return prices
}
