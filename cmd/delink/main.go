// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the delink CLI.
//
// Run without a subcommand, delink is a pandoc JSON filter:
//
//	pandoc abstract.md --filter delink -o abstract.html
//
// The render and abstracts subcommands drive pandoc themselves to produce
// link-free abstracts for the research page.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/delink/internal/delink"
	"github.com/pdiddy/delink/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the filter itself; pandoc passes the target format as the only
// argument and the document on stdin.
var rootCmd = &cobra.Command{
	Use:   "delink [format]",
	Short: "Pandoc filter that removes links and keeps their text",
	Long: `delink is a pandoc JSON filter. It reads a pandoc document from stdin,
replaces every Link element with the link's text, and writes the document to
stdout. Targets and link attributes are dropped; everything else is left as it
was read.

Use it with pandoc's --filter option, or use the render and abstracts
subcommands to run pandoc and the filter together.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,

	SuggestionsMinimumDistance: 2,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		logger := newLogger(cmd.ErrOrStderr(), level)
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug("using config file", "path", used)
		}
		cmd.SetContext(withLogger(cmd.Context(), logger))
		return nil
	},
	RunE: runFilter,
}

func runFilter(cmd *cobra.Command, args []string) error {
	format := ""
	if len(args) > 0 {
		format = args[0]
		// A near miss of a subcommand name would otherwise block on stdin.
		if suggestions := cmd.SuggestionsFor(format); format != "" && len(suggestions) > 0 {
			return fmt.Errorf("unknown command %q for %q, did you mean %q?", format, cmd.CommandPath(), suggestions[0])
		}
	}
	logger := loggerFromContext(cmd.Context())
	logger.Debug("filtering document", "format", format)

	if err := delink.Filter(cmd.InOrStdin(), cmd.OutOrStdout(), format); err != nil {
		return fmt.Errorf("delink: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./delink.yaml or ~/.config/delink/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging on stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("delink")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "delink"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("DELINK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; defaults and flags apply.
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key so DELINK_* variables are seen by
// viper.Unmarshal even without a config file.
func setDefaults() {
	d := types.Config{}.WithDefaults()
	viper.SetDefault("pandoc.backend", string(d.Pandoc.Backend))
	viper.SetDefault("pandoc.binary", d.Pandoc.Binary)
	viper.SetDefault("pandoc.image", d.Pandoc.Image)
	viper.SetDefault("pandoc.timeout", d.Pandoc.Timeout)
	viper.SetDefault("render.from", d.Render.From)
	viper.SetDefault("render.to", d.Render.To)
	viper.SetDefault("render.out_dir", d.Render.OutDir)
	viper.SetDefault("render.force", false)
	viper.SetDefault("abstracts.papers_dir", d.Abstracts.PapersDir)
	viper.SetDefault("abstracts.index_dir", d.Abstracts.IndexDir)
}

// loadConfig returns the effective configuration: flags over environment
// over config file over defaults.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
