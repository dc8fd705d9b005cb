package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	awsplatform "github.com/imamik/mskstack/internal/platform/aws"
	"github.com/imamik/mskstack/internal/ui/benchmarks"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

var stageTitles = map[benchmarks.Stage]string{
	benchmarks.StageNetwork: "  Network & IAM",
	benchmarks.StageCluster: "  Cluster",
	benchmarks.StageAdmin:   "  Kafka",
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderResources(&b, m)

	if len(m.Failures) > 0 {
		renderErrors(&b, m)
	}
	if m.Done && m.Result != nil && len(m.Result.Outputs) > 0 {
		renderOutputs(&b, m)
	}

	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	title := fmt.Sprintf("mskstack %s: %s", m.Operation, m.StackName)
	if m.Region != "" {
		title += fmt.Sprintf(" (%s)", m.Region)
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render(fmt.Sprintf("Error: %v", m.Err))
	case m.Done && m.Result != nil && m.Result.Operation == awsplatform.OperationNone:
		status += readyStyle.Render("No changes")
	case m.Done:
		status += readyStyle.Render("Complete")
	case stateOf(m.StackStatus) == StateRollingBack:
		status += failedStyle.Render(m.StackStatus)
	case m.StackStatus != "":
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame)+" ") + warningStyle.Render(m.StackStatus)
	default:
		status += dimStyle.Render("Starting...")
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))

	pct := int(progress * 100)
	eta := ""
	if m.EstimatedRemaining > 0 {
		eta = fmt.Sprintf(" ETA %s", formatDuration(m.EstimatedRemaining))
	}
	if m.PerformanceScale != 0 && m.PerformanceScale != 1.0 {
		eta += fmt.Sprintf("  speed x%.2f", m.PerformanceScale)
	}

	fmt.Fprintf(b, "  %s %d%%%s\n", bar, pct, eta)
}

func renderResources(b *strings.Builder, m Model) {
	byStage := make(map[benchmarks.Stage][]Resource)
	for _, r := range m.Resources {
		stage := benchmarks.StageOf(r.Type)
		byStage[stage] = append(byStage[stage], r)
	}

	for _, stage := range benchmarks.Stages {
		resources := byStage[stage]
		if len(resources) == 0 {
			continue
		}
		done := 0
		for _, r := range resources {
			if r.State() == StateDone {
				done++
			}
		}
		b.WriteString(sectionStyle.Render(stageTitles[stage]))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" %d/%d", done, len(resources))))
		b.WriteString("\n")

		for _, r := range resources {
			renderResourceRow(b, m, r)
		}
	}
}

func renderResourceRow(b *strings.Builder, m Model, r Resource) {
	icon, style := resourceIcon(r.State(), m.SpinnerFrame)

	dur := ""
	switch {
	case !r.EndedAt.IsZero() && !r.StartedAt.IsZero():
		dur = formatDuration(r.EndedAt.Sub(r.StartedAt))
	case !r.StartedAt.IsZero():
		dur = formatDuration(time.Since(r.StartedAt))
	}

	status := r.Status
	if status == "" {
		status = "pending"
	}
	fmt.Fprintf(b, "    %s %-32s %-28s %s %s\n",
		style(icon), style(r.LogicalID), dimStyle.Render(r.Type), style(status), dimStyle.Render(dur))
}

func renderErrors(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Recent Errors"))
	b.WriteString("\n")

	// Show last 3 errors
	start := 0
	if len(m.Failures) > 3 {
		start = len(m.Failures) - 3
	}
	for _, e := range m.Failures[start:] {
		fmt.Fprintf(b, "    %s [%s] %s\n",
			failedStyle.Render(crossMark), e.LogicalID, dimStyle.Render(e.Reason))
	}
}

func renderOutputs(b *strings.Builder, m Model) {
	b.WriteString(sectionStyle.Render("  Outputs"))
	b.WriteString("\n")

	keys := make([]string, 0, len(m.Result.Outputs))
	for k := range m.Result.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "    %-36s %s\n", k, m.Result.Outputs[k])
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	parts := []string{fmt.Sprintf("elapsed: %s", elapsed)}
	if m.Done || m.Err != nil {
		b.WriteString(footerStyle.Render("  " + strings.Join(parts, "  |  ")))
		b.WriteString("\n")
		return
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  %s  |  %s waiting for CloudFormation  |  q: stop watching",
		strings.Join(parts, "  |  "), currentSpinner(m.SpinnerFrame))))
	b.WriteString("\n")
}

// Helper functions

func resourceIcon(state ResourceState, frame int) (string, styleFunc) {
	switch state {
	case StateDone:
		return checkMark, sf(readyStyle)
	case StateFailed:
		return crossMark, sf(failedStyle)
	case StateRollingBack:
		return warnMark, sf(warningStyle)
	case StateActive:
		return currentSpinner(frame), sf(activeStyle)
	default:
		return pending, sf(dimStyle)
	}
}

func statusIcon(ok bool) (string, styleFunc) {
	if ok {
		return checkMark, sf(readyStyle)
	}
	return crossMark, sf(failedStyle)
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1.0
	}
	if len(m.Resources) == 0 {
		return 0
	}

	// Updates only touch changed resources, so count those that reported.
	total := 0
	done := 0
	updating := strings.HasPrefix(m.StackStatus, "UPDATE")
	for _, r := range m.Resources {
		if updating && r.State() == StatePending {
			continue
		}
		total++
		if r.State() == StateDone {
			done++
		}
	}
	if total == 0 {
		return 0
	}

	progress := float64(done) / float64(total)
	// Leave the last step for the stack itself.
	if progress > 0.99 {
		progress = 0.99
	}
	return progress
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
