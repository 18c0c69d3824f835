// Package cli implements the harmonizer command line: offline conversion of
// JSON exports plus a few maintenance commands for the history database.
//
// Settings resolve as flags > HARMONIZER_* environment variables > config
// file > defaults.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/JonMunkholm/harmonizer/internal/core"
	"github.com/JonMunkholm/harmonizer/internal/ingest"
	"github.com/JonMunkholm/harmonizer/internal/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. HARMONIZER_NULL_POLICY.
const envPrefix = "HARMONIZER"

var (
	successText = color.New(color.FgGreen).SprintFunc()
	warnText    = color.New(color.FgYellow).SprintFunc()
	errorText   = color.New(color.FgRed, color.Bold).SprintFunc()
)

// app carries the state shared by every command.
type app struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
}

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "harmonizer",
		Short:         "Convert MCP server catalog exports from JSON to CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			level := a.v.GetString("log-level")
			if a.v.GetBool("debug") {
				level = "debug"
			}
			a.logger = logging.New(a.errOut, level, "text")
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./harmonizer.yaml if present)")
	flags.Bool("debug", false, "log debug output and dump the first record")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("null-policy", "empty", "how missing values are written: empty or null")
	flags.Int64("max-file-size", ingest.DefaultMaxFileSize, "maximum input size in bytes")
	flags.String("database-url", "", "PostgreSQL URL of the history database (also DATABASE_URL)")
	for _, name := range []string{"debug", "log-level", "null-policy", "max-file-size", "database-url"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newConvertCommand(a),
		newSchemaCommand(a),
		newMigrateCommand(a),
		newHistoryCommand(a),
	)
	return root
}

// loadConfig wires environment variables and reads the optional config file.
func (a *app) loadConfig() error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindEnv("database-url", envPrefix+"_DATABASE_URL", "DATABASE_URL")

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("harmonizer")
		a.v.AddConfigPath(".")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return run(NewRootCommand(), os.Stderr)
}

func run(root *cobra.Command, errOut io.Writer) int {
	if err := root.Execute(); err != nil {
		if !core.IsUserFacing(err) {
			fmt.Fprintf(errOut, "%s %v\n", errorText("error:"), err)
			return 1
		}
		msg := core.MapError(err)
		fmt.Fprintf(errOut, "%s %s (%s)\n", errorText("error:"), msg.Message, msg.Code)
		fmt.Fprintf(errOut, "  %v\n", err)
		if msg.Action != "" {
			fmt.Fprintf(errOut, "  %s\n", msg.Action)
		}
		return 1
	}
	return 0
}
