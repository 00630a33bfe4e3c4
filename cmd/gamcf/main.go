// Command gamcf generates counterfactual explanations for additive
// bin-based models from the command line, or serves them over HTTP.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ezoic/gamcf/pkg/log"
	"github.com/ezoic/gamcf/solver"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "gamcf",
		Short:   "Counterfactual explanations for additive bin-based models",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetupLogger(viper.GetString("log_level"), nil)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.gamcf.yaml)")
	flags.String("solver-url", "http://localhost:8171", "base URL of the MIP solver service")
	flags.Duration("solver-timeout", 30*time.Second, "per-solve request timeout")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	cobra.OnInitialize(func() { initConfig(root) })
	_ = viper.BindPFlag("solver_url", flags.Lookup("solver-url"))
	_ = viper.BindPFlag("solver_timeout", flags.Lookup("solver-timeout"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newServeCmd())
	return root
}

func initConfig(root *cobra.Command) {
	if cfgFile, _ := root.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".gamcf")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("GAMCF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

func newSolverClient() *solver.HTTPSolver {
	return solver.NewHTTPSolver(solver.HTTPConfig{
		BaseURL:        viper.GetString("solver_url"),
		RequestTimeout: viper.GetDuration("solver_timeout"),
	}, nil)
}
