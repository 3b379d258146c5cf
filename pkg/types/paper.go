// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for delink: render and
// pipeline configuration, paper metadata, and rendered abstract records.
package types

import "time"

// RenderStatus indicates the outcome of rendering one abstract.
type RenderStatus string

const (
	RenderDone    RenderStatus = "rendered"
	RenderSkipped RenderStatus = "skipped"
	RenderFailed  RenderStatus = "failed"
)

// Paper holds the metadata of a publication listed on the research page.
// Metadata files live under papers/metadata/<id>.yaml.
type Paper struct {
	// ID is a slug identifying the paper (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Date is the publication or preprint date.
	Date time.Time `json:"date" yaml:"date"`

	// SourceURL points at the published version.
	SourceURL string `json:"source_url" yaml:"source_url"`

	// Abstract is the paper abstract in Markdown. Links are allowed here;
	// they are stripped when rendered.
	Abstract string `json:"abstract" yaml:"abstract"`
}

// AbstractEntry is a rendered abstract as stored in the ledger and exported
// for the static site.
type AbstractEntry struct {
	// PaperID matches Paper.ID.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	Title   string    `json:"title" yaml:"title"`
	Authors []string  `json:"authors" yaml:"authors"`
	Date    time.Time `json:"date" yaml:"date"`

	// SourceURL is kept on the entry so the page can link the paper once,
	// outside the abstract body.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Format is the pandoc output format the abstract was rendered to.
	Format string `json:"format" yaml:"format"`

	// Rendered is the delinked abstract in Format.
	Rendered string `json:"rendered" yaml:"rendered"`

	// SourceHash is the sha256 of the Markdown abstract that produced Rendered.
	SourceHash string `json:"source_hash" yaml:"source_hash"`

	RenderedAt time.Time `json:"rendered_at" yaml:"rendered_at"`
}
