package tui

import (
	"fmt"
	"strings"

	"github.com/imamik/mskstack/internal/platform/kafka"
)

// Check is one doctor check.
type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// DoctorStatus is what doctor found out about a stack.
type DoctorStatus struct {
	StackName string        `json:"stack"`
	Region    string        `json:"region,omitempty"`
	Checks    []Check       `json:"checks"`
	Drift     *kafka.Report `json:"drift,omitempty"`
}

// Healthy reports whether every check that ran passed and no drift was found.
func (s DoctorStatus) Healthy() bool {
	for _, c := range s.Checks {
		if !c.OK && !c.Skipped {
			return false
		}
	}
	return s.Drift == nil || s.Drift.Clean()
}

// RenderDoctor renders doctor output using lipgloss.
func RenderDoctor(s DoctorStatus) string {
	var b strings.Builder

	title := fmt.Sprintf("mskstack doctor: %s", s.StackName)
	if s.Region != "" {
		title += fmt.Sprintf(" (%s)", s.Region)
	}
	b.WriteString(titleStyle.Render(title))
	if s.Healthy() {
		b.WriteString(" " + readyStyle.Render("Healthy"))
	} else {
		b.WriteString(" " + failedStyle.Render("Problems found"))
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("  Checks"))
	b.WriteString("\n")
	for _, c := range s.Checks {
		icon, style := statusIcon(c.OK)
		if c.Skipped {
			icon, style = skipMark, sf(dimStyle)
		}
		fmt.Fprintf(&b, "    %s %-24s %s\n", style(icon), style(c.Name), dimStyle.Render(c.Detail))
	}

	if s.Drift != nil {
		b.WriteString(sectionStyle.Render("  Kafka"))
		b.WriteString("\n")
		fmt.Fprintf(&b, "    %d topics and %d ACLs declared\n", s.Drift.Topics, s.Drift.ACLs)
		problems := s.Drift.Problems()
		if len(problems) == 0 {
			fmt.Fprintf(&b, "    %s %s\n", readyStyle.Render(checkMark), readyStyle.Render("cluster matches the declared resources"))
		}
		for _, p := range problems {
			fmt.Fprintf(&b, "    %s %s\n", warningStyle.Render(warnMark), p)
		}
	}

	return b.String()
}
