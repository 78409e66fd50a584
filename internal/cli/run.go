package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"missionflow/internal/chain"
	"missionflow/internal/display"
	"missionflow/internal/logger"
	"missionflow/internal/metrics"
	"missionflow/internal/supervisor"
)

var (
	runChains  []string
	runTimeout time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run chains until they finish or the process is interrupted",
	Long: `Runs the named chains (--chain, repeatable). Without --chain the chains
marked auto_start are started, or every chain when none is marked.
Ctrl+C stops all chains; looping chains only end this way or by --timeout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, sys, reg, err := loadSystem(args)
		if err != nil {
			return err
		}

		for _, name := range runChains {
			if _, ok := sys.Lookup(name); !ok {
				return fmt.Errorf("%w: %q (have %s)", supervisor.ErrUnknownChain, name, strings.Join(sys.ChainNames(), ", "))
			}
		}

		out := cmd.OutOrStdout()
		m, err := newManager(sys, reg, func(f supervisor.Failure) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[chain %s FAILED] %v\n", f.Chain, f.Err)
		})
		if err != nil {
			return err
		}
		defer m.Teardown()

		recorder := metrics.NewRecorder()
		m.Subscribe(recorder.Observe)
		m.Subscribe(func(ev chain.Event) {
			fmt.Fprintln(out, display.FormatEvent(ev))
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		if len(runChains) > 0 {
			for _, name := range runChains {
				if err := m.Start(ctx, name); err != nil {
					m.StopAll()
					return err
				}
			}
		} else if m.Boot(ctx) == 0 {
			m.StartAll(ctx)
		}
		logger.Log.Info().Strs("chains", m.Names()).Msg("mission system running")

		// Stopping explicitly ends runs parked between missions right away.
		go func() {
			<-ctx.Done()
			m.StopAll()
		}()

		waitErr := m.Wait()
		for _, run := range recorder.Runs() {
			fmt.Fprintln(out, display.FormatRunMetrics(&run))
		}
		return waitErr
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runChains, "chain", nil, "chain to run (repeatable)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "stop every chain after this long (0 = no limit)")
}
