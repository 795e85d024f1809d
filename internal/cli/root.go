package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/usagepulse/internal/app"
	"github.com/pratik-mahalle/usagepulse/internal/config"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
)

// rootOptions carries the global flags and the engine shared by subcommands
type rootOptions struct {
	cfgFile      string
	outputFormat string
	dbDriver     string
	dbPath       string
	logLevel     string

	v   *viper.Viper
	app *app.App
	out io.Writer
}

// Execute runs the usagepulse CLI
func Execute(ctx context.Context) error {
	cmd, opts := newRootCmd()
	defer opts.close()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "usagepulse",
		Short: "UsagePulse CLI - customer usage anomaly detection",
		Long: `UsagePulse CLI scans customer usage snapshots for drops, spikes, pattern
changes and abandoned features, and manages the anomalies it records.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.out = cmd.OutOrStdout()
			opts.initConfig()
			if cmd.Name() == "help" || cmd.Name() == "completion" || (cmd.Parent() != nil && cmd.Parent().Name() == "completion") {
				return nil
			}
			return opts.initEngine(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default $HOME/.usagepulse/config.yaml)")
	flags.StringVarP(&opts.outputFormat, "output", "o", "", "output format: table, json, yaml")
	flags.StringVar(&opts.dbDriver, "db-driver", "", "database driver: sqlite or postgres (overrides DB_DRIVER)")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite database path (overrides DB_PATH)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level written to stderr")

	_ = opts.v.BindPFlag("output", flags.Lookup("output"))
	_ = opts.v.BindPFlag("database.driver", flags.Lookup("db-driver"))
	_ = opts.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = opts.v.BindPFlag("log_level", flags.Lookup("log-level"))

	cmd.AddCommand(newScanCmd(opts))
	cmd.AddCommand(newDetectCmd(opts))
	cmd.AddCommand(newAnomaliesCmd(opts))
	cmd.AddCommand(newDismissCmd(opts))
	cmd.AddCommand(newBaselineCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))

	return cmd, opts
}

func (o *rootOptions) close() {
	if o.app != nil {
		_ = o.app.Close()
		o.app = nil
	}
}

func (o *rootOptions) initConfig() {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		o.v.AddConfigPath(filepath.Join(home, ".usagepulse"))
		o.v.SetConfigName("config")
		o.v.SetConfigType("yaml")
	}

	o.v.SetEnvPrefix("USAGEPULSE")
	o.v.AutomaticEnv()

	o.v.SetDefault("output", "table")
	o.v.SetDefault("log_level", "warn")

	_ = o.v.ReadInConfig()
}

// initEngine loads the service configuration, lets the CLI config file and
// flags override the store location, and opens the engine
func (o *rootOptions) initEngine(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if driver := o.v.GetString("database.driver"); driver != "" {
		cfg.Database.Driver = driver
	}
	if path := o.v.GetString("database.path"); path != "" {
		cfg.Database.Path = path
	}
	cfg.Logging.Level = o.v.GetString("log_level")
	cfg.Logging.OutputPath = "stderr"

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     "console",
		OutputPath: cfg.Logging.OutputPath,
	})

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	o.app = a
	return nil
}

func (o *rootOptions) format() string {
	if o.outputFormat != "" {
		return o.outputFormat
	}
	return o.v.GetString("output")
}

// print writes data as json or yaml and reports whether it did;
// false means the caller renders a table
func (o *rootOptions) print(data interface{}) (bool, error) {
	switch o.format() {
	case "json", "yaml":
		return true, printOutput(o.out, o.format(), data)
	default:
		return false, nil
	}
}
