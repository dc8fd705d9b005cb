package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/internal/pricing"
)

// PricesEnv names a price sheet (URL or file) used when --prices is not given.
const PricesEnv = "MSKSTACK_PRICES"

// Cost shows the estimated monthly cost of the stack.
//
// Prices come from pricesSource, then MSKSTACK_PRICES, then the built-in
// on-demand sheet. An explicit pricesSource that cannot be read is an error.
func Cost(ctx context.Context, configPath string, jsonOutput, compact bool, pricesSource string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	prices, err := loadPrices(ctx, pricesSource)
	if err != nil {
		return err
	}
	estimate := pricing.NewCalculatorWithPrices(prices).Calculate(cfg)

	f := pricing.NewFormatter()
	switch {
	case jsonOutput:
		fmt.Println(f.FormatJSON(estimate))
	case compact:
		fmt.Println(f.FormatCompact(estimate))
	case isInteractive():
		fmt.Print(renderCostSummary(estimate))
	default:
		fmt.Print(f.Format(estimate))
	}
	return nil
}

func loadPrices(ctx context.Context, source string) (*pricing.Prices, error) {
	if source == "" {
		return pricing.FetchOrDefault(ctx, os.Getenv(PricesEnv)), nil
	}
	prices, err := pricing.LoadPrices(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices from %s: %w", source, err)
	}
	return prices, nil
}

// printCostHint prints a one-line estimate after init and deploy.
func printCostHint(ctx context.Context, cfg *config.Config, source string) {
	prices := pricing.FetchOrDefault(ctx, os.Getenv(PricesEnv))
	fmt.Print(renderCostHint(source, pricing.NewCalculatorWithPrices(prices).Calculate(cfg)))
}
