package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/cuemby/dops/pkg/api"
	"github.com/cuemby/dops/pkg/config"
	"github.com/cuemby/dops/pkg/log"
	"github.com/cuemby/dops/pkg/session"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// envPrefix scopes environment overrides, e.g. DOPS_API_URL for --api-url
const envPrefix = "DOPS"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dops",
	Short: "DOPS - disease outbreak prediction client",
	Long: `dops talks to the DOPS prediction service.

The service runs on a host that sleeps when idle, so every command first
warms it up: it shows a progress schedule while probing the backend, runs
recovery when the backend is slow to answer, and only then loads locations
and requests predictions.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"dops version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "", "Base URL of the prediction service (default "+config.DefaultAPIURL+")")
	flags.String("timings", "", "YAML file with API URL and warm-up timings")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("data-dir", "", "Directory for prediction history (history disabled when empty)")
	flags.String("status-addr", "", "Serve /health, /ready, /status and /metrics on this address")
	flags.Bool("quiet", false, "Do not render warm-up progress")

	rootCmd.AddCommand(warmupCmd)
	rootCmd.AddCommand(statesCmd)
	rootCmd.AddCommand(districtsCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(historyCmd)
}

// initConfig resolves flags in this order: command line, environment
// (including a .env file in the working directory), flag defaults
func initConfig(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	rawLevel, _ := cmd.Flags().GetString("log-level")
	level, err := log.ParseLevel(rawLevel)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{
		Level:      level,
		JSONOutput: jsonOutput,
		Output:     os.Stderr,
	})

	api.Version = Version
	session.UserAgent = "dops/" + Version
	return nil
}

// bindFlags copies environment values into flags the user did not set
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
			bindErr = fmt.Errorf("failed to bind flag %s to environment: %w", f.Name, err)
		}
	})
	return bindErr
}

// loadConfig builds the client configuration from the resolved flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if path, _ := cmd.Flags().GetString("timings"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if url, _ := cmd.Flags().GetString("api-url"); url != "" {
		cfg.APIURL = strings.TrimRight(url, "/")
	}

	return cfg, cfg.Validate()
}
