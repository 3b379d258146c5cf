// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pandoc runs pandoc to move documents in and out of its JSON AST.
// Two backends implement Engine: a local pandoc binary and the pandoc
// container image run through docker or podman.
package pandoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/delink/internal/container"
	"github.com/pdiddy/delink/pkg/types"
)

// Engine converts documents to and from pandoc's JSON representation.
type Engine interface {
	// Name identifies the backend in progress output.
	Name() string

	// ToJSON reads src in the from format and returns the JSON AST.
	ToJSON(ctx context.Context, src io.Reader, from string) ([]byte, error)

	// FromJSON writes the JSON AST doc in the to format. A document with no
	// blocks renders to empty output, which is not an error.
	FromJSON(ctx context.Context, doc []byte, to string) ([]byte, error)
}

// runFunc runs pandoc with args, piping stdin to stdout.
type runFunc func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error

// engine holds the conversion logic shared by both backends; they differ
// only in how pandoc is started.
type engine struct {
	name    string
	timeout time.Duration
	run     runFunc
}

func (e *engine) Name() string { return e.name }

func (e *engine) ToJSON(ctx context.Context, src io.Reader, from string) ([]byte, error) {
	out, err := e.convert(ctx, src, []string{"--from", from, "--to", "json"})
	if err == nil && len(out) == 0 {
		err = fmt.Errorf("pandoc produced empty output")
	}
	if err != nil {
		return nil, fmt.Errorf("converting %s to json with %s: %w", from, e.name, err)
	}
	return out, nil
}

func (e *engine) FromJSON(ctx context.Context, doc []byte, to string) ([]byte, error) {
	out, err := e.convert(ctx, bytes.NewReader(doc), []string{"--from", "json", "--to", to, "--wrap", "none"})
	if err != nil {
		return nil, fmt.Errorf("converting json to %s with %s: %w", to, e.name, err)
	}
	return out, nil
}

func (e *engine) convert(ctx context.Context, src io.Reader, args []string) ([]byte, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	if err := e.run(ctx, args, src, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// NewLocal returns an Engine that runs the pandoc binary at bin. It fails
// when bin cannot be found.
func NewLocal(bin string, timeout time.Duration) (Engine, error) {
	return newLocal(container.OSExecutor{}, bin, timeout)
}

func newLocal(exec container.Executor, bin string, timeout time.Duration) (Engine, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("pandoc binary %q not found: %w", bin, err)
	}
	return &engine{
		name:    "local",
		timeout: timeout,
		run: func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
			return exec.RunPiped(ctx, path, args, stdin, stdout)
		},
	}, nil
}

// NewContainer returns an Engine that runs image through rt. It verifies
// that the image exists locally before returning.
func NewContainer(ctx context.Context, rt container.Runtime, image string, timeout time.Duration) (Engine, error) {
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("pandoc image not available in %s: %w", rt.Name(), err)
	}
	return &engine{
		name:    rt.Name() + ":" + image,
		timeout: timeout,
		run: func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
			return rt.Run(ctx, image, args, stdin, stdout)
		},
	}, nil
}

// New builds the Engine selected by cfg. The container backend detects
// docker or podman first.
func New(ctx context.Context, cfg types.PandocConfig) (Engine, error) {
	switch cfg.Backend {
	case types.BackendLocal, "":
		return NewLocal(cfg.Binary, cfg.Timeout)
	case types.BackendContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewContainer(ctx, rt, cfg.Image, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported pandoc backend %q", cfg.Backend)
	}
}
