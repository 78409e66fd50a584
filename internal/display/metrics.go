package display

import (
	"fmt"
	"strings"

	"missionflow/internal/metrics"
)

func FormatRunMetrics(run *metrics.RunMetrics) string {
	if run == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run %s of %s:\n", run.RunID, run.Chain))
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (outcome=%s, cycles=%d)\n", run.DurationMs, outcome(run.Outcome), run.Cycles))
	if run.Err != "" {
		sb.WriteString(fmt.Sprintf("- Error: %s\n", run.Err))
	}
	for _, m := range run.Missions {
		sb.WriteString(fmt.Sprintf("    • %-16s #%d %6d ms  points=%d  [%s]\n",
			m.Mission, m.Cycle, m.DurationMs, m.Points, outcome(m.Outcome)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func outcome(o string) string {
	switch o {
	case metrics.OutcomeCompleted:
		return green.Sprint(o)
	case metrics.OutcomeFailed:
		return red.Sprint(o)
	default:
		return yellow.Sprint(o)
	}
}
