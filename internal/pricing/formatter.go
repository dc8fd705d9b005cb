package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Formatter formats cost estimates for display.
type Formatter struct{}

// NewFormatter creates a new formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format returns a boxed cost estimate for plain terminals and logs.
func (f *Formatter) Format(e *Estimate) string {
	var sb strings.Builder

	width := 61

	// Header
	sb.WriteString(boxTop(width))
	sb.WriteString(boxLine("mskstack Cost Estimate", width))
	sb.WriteString(boxLine(fmt.Sprintf("Stack: %s", e.StackName), width))
	sb.WriteString(boxSep(width))
	sb.WriteString(boxLine(fmt.Sprintf("Cluster: %s", e.ClusterType), width))
	if e.Region != "" {
		sb.WriteString(boxLine(fmt.Sprintf("Region: %s", e.Region), width))
	}
	sb.WriteString(boxSep(width))

	// Line items
	sb.WriteString(boxEmpty(width))
	for _, item := range e.Items {
		line := fmt.Sprintf("%-18s %3d x %-16s %9.2f/mo",
			item.Description, item.Quantity, item.UnitType, item.Total)
		sb.WriteString(boxLine(line, width))
	}

	// Totals
	sb.WriteString(boxDash(width))
	sb.WriteString(boxLine(fmt.Sprintf("%-39s %9.2f/mo", "Total", e.Total), width))
	sb.WriteString(boxEmpty(width))
	sb.WriteString(boxLine(fmt.Sprintf("Annual estimate: %.2f", e.AnnualCost()), width))
	sb.WriteString(boxBottom(width))

	sb.WriteString("\n  On-demand prices (USD)\n")
	for _, note := range e.Notes {
		fmt.Fprintf(&sb, "  Note: %s\n", note)
	}

	return sb.String()
}

// FormatCompact returns a single-line cost summary.
func (f *Formatter) FormatCompact(e *Estimate) string {
	return fmt.Sprintf("%s (%s): $%.2f/mo ($%.2f/yr)",
		e.StackName, e.ClusterType, e.Total, e.AnnualCost())
}

// FormatJSON returns the estimate as JSON.
func (f *Formatter) FormatJSON(e *Estimate) string {
	type jsonEstimate struct {
		StackName   string     `json:"stack_name"`
		ClusterType string     `json:"cluster_type"`
		Region      string     `json:"region,omitempty"`
		Currency    string     `json:"currency"`
		Items       []LineItem `json:"items"`
		Total       float64    `json:"total"`
		Annual      float64    `json:"annual"`
		Notes       []string   `json:"notes,omitempty"`
	}

	items := e.Items
	if items == nil {
		items = []LineItem{}
	}
	je := jsonEstimate{
		StackName:   e.StackName,
		ClusterType: string(e.ClusterType),
		Region:      e.Region,
		Currency:    "USD",
		Items:       items,
		Total:       e.Total,
		Annual:      e.AnnualCost(),
		Notes:       e.Notes,
	}

	data, _ := json.MarshalIndent(je, "", "  ")
	return string(data)
}

// Helper functions for box drawing

func boxTop(width int) string {
	return fmt.Sprintf("┌%s┐\n", strings.Repeat("─", width-2))
}

func boxBottom(width int) string {
	return fmt.Sprintf("└%s┘\n", strings.Repeat("─", width-2))
}

func boxSep(width int) string {
	return fmt.Sprintf("├%s┤\n", strings.Repeat("─", width-2))
}

func boxDash(width int) string {
	return fmt.Sprintf("│ %s │\n", strings.Repeat("─", width-4))
}

func boxLine(text string, width int) string {
	padding := width - 4 - len(text)
	if padding < 0 {
		padding = 0
		text = text[:width-4]
	}
	return fmt.Sprintf("│ %s%s │\n", text, strings.Repeat(" ", padding))
}

func boxEmpty(width int) string {
	return fmt.Sprintf("│%s│\n", strings.Repeat(" ", width-2))
}
