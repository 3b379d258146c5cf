// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor stands in for os/exec. pipe receives the full argument list.
type fakeExecutor struct {
	found bool
	pipe  func(name string, args []string, stdin io.Reader, stdout io.Writer) error
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if !f.found {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/opt/bin/" + file, nil
}

func (f *fakeExecutor) RunSilent(context.Context, string, ...string) error { return nil }

func (f *fakeExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	return f.pipe(name, args, stdin, stdout)
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	images map[string]bool
	gotArg []string
	output string
	err    error
}

func (f *fakeRuntime) Name() string                   { return "docker" }
func (f *fakeRuntime) Available(context.Context) bool { return true }

func (f *fakeRuntime) ImageExists(_ context.Context, image string) error {
	if f.images[image] {
		return nil
	}
	return errors.New("no such image: " + image)
}

func (f *fakeRuntime) Run(_ context.Context, image string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.gotArg = append([]string{image}, args...)
	if f.err != nil {
		return f.err
	}
	_, _ = io.Copy(io.Discard, stdin)
	_, err := io.WriteString(stdout, f.output)
	return err
}

func TestLocal_ToJSON(t *testing.T) {
	var gotName string
	var gotArgs []string
	exec := &fakeExecutor{
		found: true,
		pipe: func(name string, args []string, stdin io.Reader, stdout io.Writer) error {
			gotName, gotArgs = name, args
			data, _ := io.ReadAll(stdin)
			_, _ = io.WriteString(stdout, `{"src":"`+string(data)+`"}`)
			return nil
		},
	}

	eng, err := newLocal(exec, "pandoc", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "local", eng.Name())

	out, err := eng.ToJSON(context.Background(), strings.NewReader("text"), "markdown")
	require.NoError(t, err)
	assert.Equal(t, `{"src":"text"}`, string(out))
	assert.Equal(t, "/opt/bin/pandoc", gotName)
	assert.Equal(t, []string{"--from", "markdown", "--to", "json"}, gotArgs)
}

func TestLocal_FromJSON(t *testing.T) {
	var gotArgs []string
	exec := &fakeExecutor{
		found: true,
		pipe: func(_ string, args []string, _ io.Reader, stdout io.Writer) error {
			gotArgs = args
			_, _ = io.WriteString(stdout, "<p>docs</p>\n")
			return nil
		},
	}

	eng, err := newLocal(exec, "pandoc", 0)
	require.NoError(t, err)

	out, err := eng.FromJSON(context.Background(), []byte(`{}`), "html")
	require.NoError(t, err)
	assert.Equal(t, "<p>docs</p>\n", string(out))
	assert.Equal(t, []string{"--from", "json", "--to", "html", "--wrap", "none"}, gotArgs)
}

func TestLocal_BinaryMissing(t *testing.T) {
	_, err := newLocal(&fakeExecutor{}, "pandoc", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pandoc binary "pandoc" not found`)
}

func TestLocal_Errors(t *testing.T) {
	tests := []struct {
		name   string
		pipe   func(string, []string, io.Reader, io.Writer) error
		errMsg string
	}{
		{
			name: "process failure",
			pipe: func(string, []string, io.Reader, io.Writer) error {
				return errors.New("exit status 64: Unknown input format nope")
			},
			errMsg: "Unknown input format",
		},
		{
			name:   "empty output",
			pipe:   func(string, []string, io.Reader, io.Writer) error { return nil },
			errMsg: "empty output",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := newLocal(&fakeExecutor{found: true, pipe: tt.pipe}, "pandoc", 0)
			require.NoError(t, err)

			_, err = eng.ToJSON(context.Background(), strings.NewReader("x"), "nope")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "converting nope to json with local")
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLocal_FromJSONEmptyOutput(t *testing.T) {
	exec := &fakeExecutor{
		found: true,
		pipe: func(_ string, _ []string, stdin io.Reader, _ io.Writer) error {
			_, err := io.Copy(io.Discard, stdin)
			return err
		},
	}
	eng, err := newLocal(exec, "pandoc", 0)
	require.NoError(t, err)

	out, err := eng.FromJSON(context.Background(), []byte(`{"pandoc-api-version":[1,23,1],"meta":{},"blocks":[]}`), "html")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLocal_TimeoutSetsDeadline(t *testing.T) {
	var hadDeadline bool
	exec := &deadlineExecutor{check: func(ctx context.Context) {
		_, hadDeadline = ctx.Deadline()
	}}

	eng, err := newLocal(exec, "pandoc", time.Minute)
	require.NoError(t, err)
	_, err = eng.FromJSON(context.Background(), []byte(`{}`), "html")
	require.NoError(t, err)
	assert.True(t, hadDeadline)
}

// deadlineExecutor reports the context it was run with.
type deadlineExecutor struct {
	check func(ctx context.Context)
}

func (d *deadlineExecutor) LookPath(file string) (string, error)               { return file, nil }
func (d *deadlineExecutor) RunSilent(context.Context, string, ...string) error { return nil }

func (d *deadlineExecutor) RunPiped(ctx context.Context, _ string, _ []string, _ io.Reader, stdout io.Writer) error {
	d.check(ctx)
	_, err := io.WriteString(stdout, "ok")
	return err
}

func TestContainer(t *testing.T) {
	rt := &fakeRuntime{
		images: map[string]bool{"pandoc/core:latest": true},
		output: `{"pandoc-api-version":[1,23,1],"meta":{},"blocks":[]}`,
	}

	eng, err := NewContainer(context.Background(), rt, "pandoc/core:latest", 0)
	require.NoError(t, err)
	assert.Equal(t, "docker:pandoc/core:latest", eng.Name())

	out, err := eng.ToJSON(context.Background(), strings.NewReader("# T"), "markdown")
	require.NoError(t, err)
	assert.Contains(t, string(out), "pandoc-api-version")
	assert.Equal(t, []string{"pandoc/core:latest", "--from", "markdown", "--to", "json"}, rt.gotArg)
}

func TestContainer_ImageMissing(t *testing.T) {
	rt := &fakeRuntime{images: map[string]bool{}}

	_, err := NewContainer(context.Background(), rt, "pandoc/core:latest", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pandoc image not available in docker")
}

func TestContainer_RunFailure(t *testing.T) {
	rt := &fakeRuntime{
		images: map[string]bool{"pandoc/core:latest": true},
		err:    errors.New("container exited with code 1"),
	}

	eng, err := NewContainer(context.Background(), rt, "pandoc/core:latest", 0)
	require.NoError(t, err)

	_, err = eng.FromJSON(context.Background(), []byte(`{}`), "latex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converting json to latex")
	assert.Contains(t, err.Error(), "container exited with code 1")
}
