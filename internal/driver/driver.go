// Package driver is a thin abstraction over the container runtime used to
// back the sandbox pool: create, exec, archive put/get, and remove.
package driver

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors classifying driver failures per the service's error taxonomy.
var (
	// ErrNotFound indicates the requested container does not exist.
	ErrNotFound = errors.New("container not found")

	// ErrTransient indicates the container runtime is unreachable.
	ErrTransient = errors.New("container runtime unreachable")

	// ErrFatal indicates an unrecoverable startup failure (e.g. image pull failed).
	ErrFatal = errors.New("fatal driver error")
)

// Spec describes the container to create.
type Spec struct {
	Image       string
	MemoryBytes int64
	NanoCPUs    int64
	WorkDir     string
	Labels      map[string]string
}

// Handle is an opaque container identity.
type Handle struct {
	ID      string
	ShortID string
}

// ExecResult is the raw outcome of running a command inside a container,
// before the sandbox pool applies language-specific formatting or truncation.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Driver is the abstraction interface for the container runtime.
// Implementations must be safe for concurrent use.
type Driver interface {
	// ImageEnsure pulls ref only if it is not already present locally.
	// Idempotent: a warm local image is never re-pulled.
	ImageEnsure(ctx context.Context, ref string) error

	// Create provisions a new container from spec, starts it with
	// "sleep infinity" so it can be exec'd into later, and returns its handle.
	Create(ctx context.Context, spec Spec) (*Handle, error)

	// Exec runs argv inside the container rooted at workdir, demultiplexing
	// stdout and stderr into separate byte slices. It enforces timeout and,
	// on breach, returns an ExecResult{ExitCode: -1, Stderr: "Execution
	// timed out after N seconds"} after a best-effort kill of the process
	// tree matched by argv[0].
	Exec(ctx context.Context, h *Handle, argv []string, workdir string, timeout time.Duration) (ExecResult, error)

	// ArchiveGet returns a single-entry tar stream of path. Caller must close it.
	ArchiveGet(ctx context.Context, h *Handle, path string) (io.ReadCloser, error)

	// ArchivePut extracts the tar stream under parentDir inside the container.
	ArchivePut(ctx context.Context, h *Handle, parentDir string, tarStream io.Reader) error

	// Remove force-removes the container. Idempotent: removing an already
	// gone container is not an error.
	Remove(ctx context.Context, h *Handle, force bool) error

	// Healthy checks connectivity to the underlying runtime.
	Healthy(ctx context.Context) error

	// Close releases resources held by the driver client itself.
	Close() error
}
