package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"missionflow/internal/chain"
	"missionflow/internal/config"
	"missionflow/internal/llm"
	"missionflow/internal/logger"
	"missionflow/internal/missions"
	"missionflow/internal/supervisor"
)

var settings config.Settings

var rootCmd = &cobra.Command{
	Use:   "missionctl",
	Short: "Run chains of missions described in a config file",
	Long: `missionctl loads a mission system (TOML, YAML or JSON), builds its chains
and runs them: one mission at a time per chain, with start delays and
optional looping. Chains run independently of each other.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(validateCmd, listCmd, runCmd, consoleCmd)
}

// Execute runs the command line with process settings already loaded.
func Execute(s config.Settings) {
	settings = s
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath prefers the positional argument over MISSIONFLOW_CONFIG.
func configPath(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if settings.ConfigPath != "" {
		return settings.ConfigPath, nil
	}
	return "", fmt.Errorf("no config file given (pass one or set MISSIONFLOW_CONFIG)")
}

func loadSystem(args []string) (string, *config.SystemDescriptor, *missions.Registry, error) {
	path, err := configPath(args)
	if err != nil {
		return "", nil, nil, err
	}
	sys, err := config.Load(path)
	if err != nil {
		return path, nil, nil, err
	}
	reg := missions.Default(llm.Config{
		Backend:    settings.LLMBackend,
		Model:      settings.LLMModel,
		OllamaHost: settings.OllamaHost,
		APIKey:     settings.GeminiAPIKey,
	})
	if err := config.Validate(sys, reg); err != nil {
		return path, nil, nil, err
	}
	return path, sys, reg, nil
}

func newManager(sys *config.SystemDescriptor, reg *missions.Registry, onFailure func(supervisor.Failure)) (*supervisor.Manager, error) {
	opts := []supervisor.Option{supervisor.WithFailureHandler(onFailure)}
	if !settings.Strict {
		opts = append(opts, supervisor.WithChainOptions(chain.WithLenientFactory()))
	}
	m, err := supervisor.New(sys, reg, reg, opts...)
	if err != nil {
		logger.Log.Error().Err(err).Msg("could not build mission system")
		return nil, err
	}
	return m, nil
}
