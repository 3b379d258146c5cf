// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/delink/internal/ledger"
	"github.com/pdiddy/delink/internal/pandoc"
	"github.com/pdiddy/delink/internal/render"
	"github.com/pdiddy/delink/pkg/types"
)

var abstractsCmd = &cobra.Command{
	Use:   "abstracts",
	Short: "Manage the rendered abstract ledger (build, show, export)",
	Long: `Abstracts keeps a SQLite ledger of paper abstracts rendered without
links. Paper metadata is read from papers/metadata/*.yaml; the ledger lives
in index/abstracts.db.`,
}

// --- build subcommand ---

var abstractsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render new or changed abstracts into the ledger",
	Long: `Build reads every paper metadata file, renders abstracts that are new or
whose text changed, removes entries for papers that no longer exist, and
writes index/abstracts.yaml when anything changed.`,
	RunE: runAbstractsBuild,
}

func runAbstractsBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := pandoc.New(ctx, cfg.Pandoc)
	if err != nil {
		return err
	}

	store, err := ledger.NewStore(cfg.Abstracts, cfg.Render.To)
	if err != nil {
		return err
	}
	defer store.Close()

	renderFn := func(ctx context.Context, abstract string) (string, error) {
		out, err := render.Abstract(ctx, eng, strings.NewReader(abstract), cfg.Render.From, cfg.Render.To)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}

	p := newProgress(logger)
	summary, err := store.Ingest(ctx, renderFn, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Processed %d paper(s)", summary.Total()))

	if summary.Rendered > 0 || summary.Updated > 0 || summary.Removed > 0 {
		path, err := store.Export(ctx, "yaml")
		if err != nil {
			logger.Warn("export failed", "err", err)
		} else {
			logger.Info("exported", "path", path)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d paper(s) failed rendering", summary.Failed)
	}
	return nil
}

// --- show subcommand ---

var abstractsShowCmd = &cobra.Command{
	Use:   "show [paper-id]",
	Short: "Print one rendered abstract",
	Args:  cobra.ExactArgs(1),
	RunE:  runAbstractsShow,
}

func runAbstractsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := ledger.NewStore(cfg.Abstracts, cfg.Render.To)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}
	return formatEntry(cmd, entry)
}

func formatEntry(cmd *cobra.Command, e types.AbstractEntry) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", e.Title)
	if len(e.Authors) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Join(e.Authors, ", "))
	}
	if !e.Date.IsZero() {
		fmt.Fprintf(w, "%s\n", e.Date.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "\n%s\n", e.Rendered)
	return nil
}

// --- export subcommand ---

var abstractsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger to YAML or JSON",
	Long: `Export writes every ledger entry to index/abstracts.yaml or
index/abstracts.json, newest paper first, for use as a static-site data file.`,
	RunE: runAbstractsExport,
}

func runAbstractsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := ledger.NewStore(cfg.Abstracts, cfg.Render.To)
	if err != nil {
		return err
	}
	defer store.Close()

	path, err := store.Export(cmd.Context(), format)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	abstractsCmd.PersistentFlags().String("papers-dir", "papers", "base directory for papers (contains metadata/)")
	abstractsCmd.PersistentFlags().String("index-dir", "index", "directory for the ledger database and exports")

	_ = viper.BindPFlag("abstracts.papers_dir", abstractsCmd.PersistentFlags().Lookup("papers-dir"))
	_ = viper.BindPFlag("abstracts.index_dir", abstractsCmd.PersistentFlags().Lookup("index-dir"))

	abstractsShowCmd.Flags().Bool("json", false, "output the entry as JSON")
	abstractsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	abstractsCmd.AddCommand(abstractsBuildCmd)
	abstractsCmd.AddCommand(abstractsShowCmd)
	abstractsCmd.AddCommand(abstractsExportCmd)

	rootCmd.AddCommand(abstractsCmd)
}
