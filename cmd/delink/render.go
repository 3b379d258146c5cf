// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/delink/internal/pandoc"
	"github.com/pdiddy/delink/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render [files...]",
	Short: "Render abstract files to a link-free output format",
	Long: `Render runs each file through pandoc, strips its links with the delink
filter, and writes the result to the output directory with YAML frontmatter.
Files whose output already exists are skipped unless --force is given.

Use --batch to render every matching file in --in-dir.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().String("from", "markdown", "pandoc reader for the input files")
	renderCmd.Flags().String("to", "html", "pandoc writer for the output files")
	renderCmd.Flags().String("out-dir", "output/abstracts", "directory for rendered files")
	renderCmd.Flags().Bool("force", false, "re-render files whose output exists")
	renderCmd.Flags().Bool("batch", false, "render every input file in --in-dir")
	renderCmd.Flags().String("in-dir", "abstracts", "input directory for --batch")
	renderCmd.Flags().String("backend", "local", "pandoc backend: local or container")

	_ = viper.BindPFlag("render.from", renderCmd.Flags().Lookup("from"))
	_ = viper.BindPFlag("render.to", renderCmd.Flags().Lookup("to"))
	_ = viper.BindPFlag("render.out_dir", renderCmd.Flags().Lookup("out-dir"))
	_ = viper.BindPFlag("render.force", renderCmd.Flags().Lookup("force"))
	_ = viper.BindPFlag("pandoc.backend", renderCmd.Flags().Lookup("backend"))

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths := args
	if batch, _ := cmd.Flags().GetBool("batch"); batch {
		inDir, _ := cmd.Flags().GetString("in-dir")
		found, err := render.Discover(inDir, cfg.Render.From)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("provide one or more abstract files, or use --batch")
	}

	eng, err := pandoc.New(ctx, cfg.Pandoc)
	if err != nil {
		return err
	}
	logger.Debug("pandoc engine ready", "backend", eng.Name(), "from", cfg.Render.From, "to", cfg.Render.To)

	p := newProgress(logger)
	result, err := render.RenderBatch(ctx, eng, paths, cfg.Render, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Rendered %d of %d file(s)", result.Rendered, result.Total()))

	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed rendering", result.Failed)
	}
	return nil
}
