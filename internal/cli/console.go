package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"missionflow/internal/chain"
	"missionflow/internal/config"
	"missionflow/internal/display"
	"missionflow/internal/listener"
	"missionflow/internal/metrics"
	"missionflow/internal/supervisor"
)

const consoleHelp = `Commands:
  start <chain>   start a chain in the background
  stop <chain>    stop a running chain
  startall        start every idle chain
  stopall         stop every chain
  status          show what each chain is doing
  list            show chains and missions
  metrics         show timings of finished and running chains
  help            show this text
  exit            stop everything and quit`

var consoleCommands = []string{"start", "stop", "startall", "stopall", "status", "list", "metrics", "help", "exit"}

var consoleCmd = &cobra.Command{
	Use:   "console [file]",
	Short: "Drive a mission system interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, sys, reg, err := loadSystem(args)
		if err != nil {
			return err
		}
		m, err := newManager(sys, reg, func(f supervisor.Failure) {
			listener.AsyncPrintln(fmt.Sprintf("[chain %s FAILED] %v", f.Chain, f.Err))
		})
		if err != nil {
			return err
		}
		defer m.Teardown()

		if err := listener.Init("missions> ", consoleCommands, []string{"start", "stop"}, m.Names()); err != nil {
			return fmt.Errorf("init terminal input: %w", err)
		}
		defer listener.Close()

		recorder := metrics.NewRecorder()
		m.Subscribe(recorder.Observe)
		m.Subscribe(func(ev chain.Event) {
			listener.AsyncPrintln(display.FormatEvent(ev))
		})

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		listener.AsyncPrintln(fmt.Sprintf("Loaded %d chain(s) from %s. Type 'help' for commands.", len(sys.Chains), path))
		if n := m.Boot(ctx); n > 0 {
			listener.AsyncPrintln(fmt.Sprintf("Auto-started %d chain(s).", n))
		}

		sh := &shell{m: m, sys: sys, path: path, recorder: recorder, ctx: ctx}
		for {
			line, err := listener.GetInput()
			if errors.Is(err, listener.ErrClosed) {
				break
			}
			if err != nil {
				return err
			}
			if line == "" {
				continue
			}
			if quit := sh.exec(line); quit {
				break
			}
		}

		m.StopAll()
		return m.Wait()
	},
}

type shell struct {
	m        *supervisor.Manager
	sys      *config.SystemDescriptor
	path     string
	recorder *metrics.Recorder
	ctx      context.Context
}

// exec runs one console line and reports whether the console should quit.
func (s *shell) exec(line string) bool {
	fields := strings.Fields(line)
	verb, rest := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "start", "stop":
		if len(rest) != 1 {
			listener.AsyncPrintln(fmt.Sprintf("usage: %s <chain>", verb))
			return false
		}
		var err error
		if verb == "start" {
			err = s.m.Start(s.ctx, rest[0])
		} else {
			err = s.m.Stop(rest[0])
		}
		if err != nil {
			listener.AsyncPrintln(fmt.Sprintf("[%s] %v", verb, err))
		}
	case "startall":
		listener.AsyncPrintln(fmt.Sprintf("Started %d chain(s).", s.m.StartAll(s.ctx)))
	case "stopall":
		s.m.StopAll()
	case "status":
		listener.AsyncPrintln(display.FormatStatus(s.m.Status()))
	case "list":
		listener.AsyncPrintln(display.FormatCatalog(s.path, s.sys))
	case "metrics":
		runs := s.recorder.Runs()
		if len(runs) == 0 {
			listener.AsyncPrintln("No runs yet.")
		}
		for _, run := range runs {
			listener.AsyncPrintln(display.FormatRunMetrics(&run))
		}
	case "help", "?":
		listener.AsyncPrintln(consoleHelp)
	case "exit", "quit":
		if s.anyRunning() && !listener.AskYesNo("Chains are still running. Stop them and exit?") {
			return false
		}
		return true
	default:
		listener.AsyncPrintln(fmt.Sprintf("unknown command %q (try 'help')", verb))
	}
	return false
}

func (s *shell) anyRunning() bool {
	for _, st := range s.m.Status() {
		if st.Running {
			return true
		}
	}
	return false
}
