// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render turns abstract files into link-free output documents. Each
// file goes through pandoc to the JSON AST, through the delink filter, and
// back through pandoc to the target format.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/delink/internal/delink"
	"github.com/pdiddy/delink/internal/pandoc"
	"github.com/pdiddy/delink/pkg/types"
)

// BatchResult holds the outcome of a batch render run.
type BatchResult struct {
	Rendered int
	Skipped  int
	Failed   int
}

// Total returns the total number of files processed.
func (r BatchResult) Total() int {
	return r.Rendered + r.Skipped + r.Failed
}

// HasFailures reports whether any file failed to render.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// frontmatter is written at the top of every rendered file.
type frontmatter struct {
	Source     string `yaml:"source"`
	Format     string `yaml:"format"`
	RenderedAt string `yaml:"rendered_at"`
}

// Abstract renders src, written in the from format, to the to format with
// all links removed.
func Abstract(ctx context.Context, eng pandoc.Engine, src io.Reader, from, to string) ([]byte, error) {
	ast, err := eng.ToJSON(ctx, src, from)
	if err != nil {
		return nil, err
	}
	stripped, err := delink.Bytes(ast, to)
	if err != nil {
		return nil, fmt.Errorf("removing links: %w", err)
	}
	return eng.FromJSON(ctx, stripped, to)
}

// RenderFile renders the abstract at path into cfg.OutDir. If the output
// already exists and cfg.Force is not set, it skips the file.
func RenderFile(ctx context.Context, eng pandoc.Engine, path string, cfg types.RenderConfig, w io.Writer) types.RenderStatus {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := OutputPath(path, cfg)

	if !cfg.Force {
		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "skipped: %s (already exists)\n", base)
			return types.RenderSkipped
		}
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.RenderFailed
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.RenderFailed
	}
	defer f.Close()

	body, err := Abstract(ctx, eng, f, cfg.From, cfg.To)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.RenderFailed
	}

	content, err := addFrontmatter(path, cfg.To, body)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.RenderFailed
	}

	if err := os.WriteFile(outPath, content, 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.RenderFailed
	}

	fmt.Fprintf(w, "rendered: %s\n", base)
	return types.RenderDone
}

// RenderBatch renders each path, printing per-file status to w and returning
// a summary. It stops early only when ctx is cancelled.
func RenderBatch(ctx context.Context, eng pandoc.Engine, paths []string, cfg types.RenderConfig, w io.Writer) (BatchResult, error) {
	var result BatchResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch RenderFile(ctx, eng, p, cfg, w) {
		case types.RenderDone:
			result.Rendered++
		case types.RenderSkipped:
			result.Skipped++
		case types.RenderFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d rendered, %d skipped, %d failed (total: %d)\n",
		result.Rendered, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// Discover returns the files in dir whose extension matches the from
// format, sorted by name.
func Discover(dir, from string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	want := inputExtensions(from)
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if want[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// OutputPath returns where RenderFile writes the output for path.
func OutputPath(path string, cfg types.RenderConfig) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(cfg.OutDir, base+Extension(cfg.To))
}

// Extension returns the file extension used for a pandoc output format.
// Writer extensions such as "+smart" are ignored.
func Extension(to string) string {
	name := to
	if i := strings.IndexAny(name, "+-"); i > 0 {
		name = name[:i]
	}
	switch name {
	case "html", "html4", "html5", "chunkedhtml":
		return ".html"
	case "latex", "beamer", "context":
		return ".tex"
	case "markdown", "gfm", "commonmark", "commonmark_x", "markdown_strict", "markdown_mmd", "markdown_phpextra", "markdown_github":
		return ".md"
	case "plain":
		return ".txt"
	case "asciidoc", "asciidoctor":
		return ".adoc"
	case "mediawiki", "dokuwiki":
		return ".wiki"
	case "jats", "docbook", "docbook4", "docbook5", "tei":
		return ".xml"
	case "native":
		return ".hs"
	default:
		return "." + name
	}
}

func inputExtensions(from string) map[string]bool {
	switch from {
	case "html", "html5":
		return map[string]bool{".html": true, ".htm": true}
	case "latex":
		return map[string]bool{".tex": true}
	case "rst":
		return map[string]bool{".rst": true}
	default:
		return map[string]bool{".md": true, ".markdown": true}
	}
}

func addFrontmatter(source, to string, body []byte) ([]byte, error) {
	fm, err := yaml.Marshal(frontmatter{
		Source:     source,
		Format:     to,
		RenderedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.Write(body)
	return b.Bytes(), nil
}
