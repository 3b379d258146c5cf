//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Abstracts groups the abstract ledger targets.
type Abstracts mg.Namespace

// Build renders new or changed paper abstracts into index/abstracts.db.
func (Abstracts) Build() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "abstracts", "build")
}

// Export writes index/abstracts.json for the site.
func (Abstracts) Export() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "abstracts", "export", "--format", "json")
}
