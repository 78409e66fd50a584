package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"missionflow/internal/chain"
	"missionflow/internal/config"
	"missionflow/internal/mission"
)

const maxParamValueLength = 60

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgHiMagenta)
)

// FormatEvent renders one chain event as a single console line.
func FormatEvent(ev chain.Event) string {
	stamp := ev.At.Format("15:04:05.000")
	head := fmt.Sprintf("%s [%s #%d]", stamp, ev.Chain, ev.Cycle)
	switch ev.Kind {
	case chain.MissionStarted:
		return fmt.Sprintf("%s %s %s", head, cyan.Sprint("started  "), ev.Mission)
	case chain.MissionPoint:
		return fmt.Sprintf("%s %s %s (%s)", head, magenta.Sprint("point    "), ev.Mission, ev.Point)
	case chain.MissionCompleted:
		if ev.State == mission.Failed {
			return fmt.Sprintf("%s %s %s: %v", head, red.Sprint("failed   "), ev.Mission, ev.Err)
		}
		return fmt.Sprintf("%s %s %s", head, green.Sprint("completed"), ev.Mission)
	case chain.ChainCompleted:
		return fmt.Sprintf("%s [%s] %s", stamp, ev.Chain, green.Sprint("chain completed"))
	case chain.ChainStopped:
		if ev.Err != nil {
			return fmt.Sprintf("%s [%s] %s (%v)", stamp, ev.Chain, yellow.Sprint("chain stopped"), ev.Err)
		}
		return fmt.Sprintf("%s [%s] %s", stamp, ev.Chain, yellow.Sprint("chain stopped"))
	default:
		return fmt.Sprintf("%s %s", head, ev.Kind)
	}
}

func FormatStatus(statuses []chain.Status) string {
	if len(statuses) == 0 {
		return "No chains."
	}
	var sb strings.Builder
	for _, st := range statuses {
		state := yellow.Sprint("idle   ")
		switch {
		case st.Disposed:
			state = red.Sprint("gone   ")
		case st.Running:
			state = green.Sprint("running")
		}
		sb.WriteString(fmt.Sprintf("  %-20s %s  missions=%d", st.Name, state, st.Missions))
		if st.Loop {
			sb.WriteString("  loop")
		}
		if st.Running {
			sb.WriteString(fmt.Sprintf("  run=%s cycle=%d at=%d/%d", st.RunID, st.Cycle, st.Index+1, st.Missions))
			if st.Current != "" {
				sb.WriteString("  current=" + st.Current)
			}
			if st.Waiting {
				sb.WriteString("  " + cyan.Sprint("(waiting)"))
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatCatalog lists every chain of a system with its missions.
func FormatCatalog(source string, sys *config.SystemDescriptor) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d chain(s) in %s:\n", len(sys.Chains), source))
	for i, c := range sys.Chains {
		var flags []string
		if c.AutoStart || sys.AutoStartAll {
			flags = append(flags, "auto_start")
		}
		if c.Loop {
			flags = append(flags, fmt.Sprintf("loop every %s", c.InterLoopDelay))
		}
		line := fmt.Sprintf("  %2d. %s  (missions=%d)", i+1, c.Name, len(c.Missions))
		if len(flags) > 0 {
			line += " " + cyan.Sprintf("[%s]", strings.Join(flags, ", "))
		}
		sb.WriteString(line + "\n")
		for _, m := range c.Missions {
			sb.WriteString(fmt.Sprintf("        - %s (%s)", m.Name, m.Kind))
			if m.StartDelay > 0 {
				sb.WriteString(fmt.Sprintf(" after %s", m.StartDelay))
			}
			if params := formatParams(m.Params); params != "" {
				sb.WriteString(" " + params)
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + formatValueForDisplay(params[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatValueForDisplay(value any) string {
	s := fmt.Sprintf("%v", value)
	s = strings.ReplaceAll(s, "\n", "\\n")

	if len(s) > maxParamValueLength {
		return s[:maxParamValueLength] + "..."
	}
	return s
}
