// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps the rendered, link-free abstracts of the papers on the
// research page in a SQLite database. Ingest re-renders only abstracts whose
// text or output format changed; Export writes the ledger as a data file for
// the static site.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/delink/pkg/types"
)

const (
	metadataDir = "metadata"
	dbFile      = "abstracts.db"
)

// ErrNotFound is returned by Get when no entry exists for a paper.
var ErrNotFound = errors.New("abstract not found")

// RenderFunc turns a Markdown abstract into its link-free rendering.
type RenderFunc func(ctx context.Context, abstract string) (string, error)

// Store manages the abstract ledger database.
type Store struct {
	db        *sql.DB
	papersDir string
	indexDir  string
	format    string
}

// NewStore opens or creates the ledger at IndexDir/abstracts.db for
// abstracts rendered to format.
func NewStore(cfg types.AbstractsConfig, format string) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:        db,
		papersDir: cfg.PapersDir,
		indexDir:  cfg.IndexDir,
		format:    format,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS abstracts (
			paper_id TEXT PRIMARY KEY,
			title TEXT,
			authors TEXT,
			date TEXT,
			source_url TEXT,
			format TEXT NOT NULL,
			rendered TEXT NOT NULL,
			source_hash TEXT NOT NULL,
			rendered_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_abstracts_date ON abstracts(date)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one ingest run.
type IngestSummary struct {
	Rendered int
	Updated  int
	Skipped  int
	Removed  int
	Failed   int
}

// Total returns the number of papers processed.
func (s IngestSummary) Total() int {
	return s.Rendered + s.Updated + s.Skipped + s.Failed
}

// Ingest reads every paper metadata file under PapersDir/metadata/ and
// renders the abstracts that are new or changed. Papers without an abstract
// are skipped. Entries whose metadata file is gone are removed, unless some
// metadata file failed to load.
func (s *Store) Ingest(ctx context.Context, render RenderFunc, w io.Writer) (IngestSummary, error) {
	metaDir := filepath.Join(s.papersDir, metadataDir)
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading metadata directory %s: %w", metaDir, err)
	}

	var summary IngestSummary
	seen := make(map[string]bool)
	// An unreadable metadata file hides which paper it belongs to, so
	// nothing can be pruned safely in that run.
	loadFailed := false

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		paper, err := loadPaper(filepath.Join(metaDir, entry.Name()))
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", entry.Name(), err)
			summary.Failed++
			loadFailed = true
			continue
		}
		seen[paper.ID] = true

		if strings.TrimSpace(paper.Abstract) == "" {
			fmt.Fprintf(w, "skipped  %s (no abstract)\n", paper.ID)
			summary.Skipped++
			continue
		}

		hash := hashAbstract(paper.Abstract)
		var storedHash, storedFormat string
		err = s.db.QueryRowContext(ctx,
			`SELECT source_hash, format FROM abstracts WHERE paper_id = ?`, paper.ID,
		).Scan(&storedHash, &storedFormat)
		exists := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			fmt.Fprintf(w, "failed   %s: %v\n", paper.ID, err)
			summary.Failed++
			continue
		}

		if exists && storedHash == hash && storedFormat == s.format {
			if err := s.updateMetadata(ctx, paper); err != nil {
				fmt.Fprintf(w, "failed   %s: %v\n", paper.ID, err)
				summary.Failed++
				continue
			}
			fmt.Fprintf(w, "skipped  %s\n", paper.ID)
			summary.Skipped++
			continue
		}

		rendered, err := render(ctx, paper.Abstract)
		if err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", paper.ID, err)
			summary.Failed++
			continue
		}

		rec := types.AbstractEntry{
			PaperID:    paper.ID,
			Title:      paper.Title,
			Authors:    paper.Authors,
			Date:       paper.Date,
			SourceURL:  paper.SourceURL,
			Format:     s.format,
			Rendered:   rendered,
			SourceHash: hash,
			RenderedAt: time.Now().UTC(),
		}
		if err := s.put(ctx, rec); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", paper.ID, err)
			summary.Failed++
			continue
		}

		if exists {
			fmt.Fprintf(w, "updated  %s\n", paper.ID)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "rendered %s\n", paper.ID)
			summary.Rendered++
		}
	}

	if loadFailed {
		fmt.Fprintf(w, "kept stale entries: some metadata files could not be read\n")
	} else {
		removed, err := s.prune(ctx, seen)
		if err != nil {
			return summary, err
		}
		summary.Removed = removed
	}

	fmt.Fprintf(w, "\nrendered: %d, updated: %d, skipped: %d, removed: %d, failed: %d\n",
		summary.Rendered, summary.Updated, summary.Skipped, summary.Removed, summary.Failed)

	return summary, nil
}

func (s *Store) put(ctx context.Context, e types.AbstractEntry) error {
	authorsJSON, _ := json.Marshal(e.Authors)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO abstracts (paper_id, title, authors, date, source_url, format, rendered, source_hash, rendered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET
			title=excluded.title, authors=excluded.authors, date=excluded.date,
			source_url=excluded.source_url, format=excluded.format, rendered=excluded.rendered,
			source_hash=excluded.source_hash, rendered_at=excluded.rendered_at`,
		e.PaperID, e.Title, string(authorsJSON), formatDate(e.Date), e.SourceURL,
		e.Format, e.Rendered, e.SourceHash, e.RenderedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting abstract: %w", err)
	}
	return nil
}

// updateMetadata refreshes the descriptive columns of an entry whose
// abstract did not change.
func (s *Store) updateMetadata(ctx context.Context, p *types.Paper) error {
	authorsJSON, _ := json.Marshal(p.Authors)
	_, err := s.db.ExecContext(ctx,
		`UPDATE abstracts SET title = ?, authors = ?, date = ?, source_url = ? WHERE paper_id = ?`,
		p.Title, string(authorsJSON), formatDate(p.Date), p.SourceURL, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating metadata: %w", err)
	}
	return nil
}

// prune deletes entries for papers not in keep.
func (s *Store) prune(ctx context.Context, keep map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT paper_id FROM abstracts`)
	if err != nil {
		return 0, fmt.Errorf("listing abstracts: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning abstract id: %w", err)
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing abstracts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM abstracts WHERE paper_id = ?`, id); err != nil {
			return 0, fmt.Errorf("removing %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing removals: %w", err)
	}
	return len(stale), nil
}

const selectColumns = `SELECT paper_id, title, authors, date, source_url, format, rendered, source_hash, rendered_at FROM abstracts`

// List returns every entry, newest paper first.
func (s *Store) List(ctx context.Context) ([]types.AbstractEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY date DESC, paper_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying abstracts: %w", err)
	}
	defer rows.Close()

	var entries []types.AbstractEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry for paperID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, paperID string) (types.AbstractEntry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE paper_id = ?`, paperID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AbstractEntry{}, fmt.Errorf("%s: %w", paperID, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (types.AbstractEntry, error) {
	var (
		e                    types.AbstractEntry
		authorsJSON, dateStr string
		renderedAt           string
	)
	err := sc.Scan(&e.PaperID, &e.Title, &authorsJSON, &dateStr, &e.SourceURL,
		&e.Format, &e.Rendered, &e.SourceHash, &renderedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning abstract: %w", err)
	}
	if authorsJSON != "" {
		_ = json.Unmarshal([]byte(authorsJSON), &e.Authors)
	}
	if dateStr != "" {
		e.Date, _ = time.Parse(time.RFC3339, dateStr)
	}
	e.RenderedAt, _ = time.Parse(time.RFC3339Nano, renderedAt)
	return e, nil
}

// Export writes all entries to IndexDir/abstracts.yaml or abstracts.json and
// returns the path written.
func (s *Store) Export(ctx context.Context, format string) (string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if entries == nil {
		entries = []types.AbstractEntry{}
	}

	var (
		path string
		data []byte
	)
	switch format {
	case "yaml", "":
		path = filepath.Join(s.indexDir, "abstracts.yaml")
		data, err = yaml.Marshal(entries)
	case "json":
		path = filepath.Join(s.indexDir, "abstracts.json")
		data, err = json.MarshalIndent(entries, "", "  ")
	default:
		return "", fmt.Errorf("unsupported export format %q: use yaml or json", format)
	}
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// loadPaper reads a Paper from a metadata YAML file. A missing id falls back
// to the file name.
func loadPaper(path string) (*types.Paper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var paper types.Paper
	if err := yaml.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if paper.ID == "" {
		base := filepath.Base(path)
		paper.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &paper, nil
}

func hashAbstract(abstract string) string {
	sum := sha256.Sum256([]byte(abstract))
	return hex.EncodeToString(sum[:])
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
