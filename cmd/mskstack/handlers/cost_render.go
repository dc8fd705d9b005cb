package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/mskstack/internal/pricing"
)

// Colors matching internal/ui/tui/styles.go palette.
var (
	costColorBlue  = lipgloss.Color("#3b82f6")
	costColorDim   = lipgloss.Color("#6b7280")
	costColorWhite = lipgloss.Color("#f9fafb")
	costColorGreen = lipgloss.Color("#22c55e")
)

var (
	costTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(costColorWhite)

	costSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(costColorBlue)

	costDimStyle = lipgloss.NewStyle().
			Foreground(costColorDim)

	costTotalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(costColorGreen)
)

// renderCostSummary produces a lipgloss-styled cost estimate.
func renderCostSummary(e *pricing.Estimate) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(costTitleStyle.Render(fmt.Sprintf("  mskstack cost: %s", e.StackName)))
	b.WriteString("\n")
	b.WriteString(costDimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n")

	where := string(e.ClusterType)
	if e.Region != "" {
		where += " in " + e.Region
	}
	b.WriteString(costDimStyle.Render("  " + where))
	b.WriteString("\n\n")

	b.WriteString(costSectionStyle.Render("  Monthly Estimate"))
	b.WriteString("\n")
	b.WriteString(costDimStyle.Render("  " + strings.Repeat("─", 58)))
	b.WriteString("\n")
	b.WriteString(costDimStyle.Render(fmt.Sprintf("  %-28s %5s %10s %11s", "Resource", "Qty", "Unit Price", "Total/mo")))
	b.WriteString("\n")

	for _, item := range e.Items {
		fmt.Fprintf(&b, "  %-28s x%-4d $%9.4f  $%9.2f\n",
			item.Description, item.Quantity, item.UnitPrice, item.Total)
	}

	b.WriteString(costDimStyle.Render("  " + strings.Repeat("─", 58)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-28s %17s %s\n", "Total", "", costTotalStyle.Render(fmt.Sprintf("$%9.2f", e.Total)))
	fmt.Fprintf(&b, "  %-28s %17s $%9.2f\n", "Annual", "", e.AnnualCost())

	if len(e.Notes) > 0 {
		b.WriteString("\n")
		for _, n := range e.Notes {
			b.WriteString(costDimStyle.Render("  Note: " + n))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderCostHint returns a styled one-line cost hint for init and deploy.
func renderCostHint(source string, e *pricing.Estimate) string {
	return fmt.Sprintf("\n%s $%.2f (about $%.0f per year)\n",
		costDimStyle.Render(fmt.Sprintf("Estimated monthly cost (%s):", source)),
		e.Total,
		e.AnnualCost(),
	)
}
