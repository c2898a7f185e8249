package sandbox

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/sandboxd/sandboxd/internal/driver"
)

// Options configures a Pool's resource limits and defaults.
type Options struct {
	Image          string
	Size           int
	MemoryBytes    int64
	NanoCPUs       int64
	DefaultTimeout time.Duration
	MaxOutputSize  int
}

// Pool owns a fixed set of pre-warmed containers, serializing acquire and
// release so no two callers ever hold the same container concurrently.
//
// Invariants (enforced by construction, not runtime checks):
//   - every handle in idle is also in owned
//   - a handle is in idle iff no caller currently holds it
//   - while running, len(owned) == Options.Size
type Pool struct {
	drv  driver.Driver
	opts Options

	mu    sync.Mutex
	owned []*driver.Handle
	idle  chan *driver.Handle
}

// New constructs a Pool. Call Start before Acquire.
func New(drv driver.Driver, opts Options) *Pool {
	return &Pool{
		drv:  drv,
		opts: opts,
		idle: make(chan *driver.Handle, opts.Size),
	}
}

// Start pulls the sandbox image if needed and creates all pool containers.
// If creating container k fails, containers 0..k-1 are rolled back and the
// pool fails to start.
func (p *Pool) Start(ctx context.Context) error {
	if err := p.drv.ImageEnsure(ctx, p.opts.Image); err != nil {
		return fmt.Errorf("%w: ensure sandbox image: %v", driver.ErrFatal, err)
	}

	created := make([]*driver.Handle, 0, p.opts.Size)
	for i := 0; i < p.opts.Size; i++ {
		log.Info().Int("index", i+1).Int("of", p.opts.Size).Msg("creating sandbox container")
		h, err := p.drv.Create(ctx, driver.Spec{
			Image:       p.opts.Image,
			MemoryBytes: p.opts.MemoryBytes,
			NanoCPUs:    p.opts.NanoCPUs,
			WorkDir:     Workspace,
		})
		if err != nil {
			for _, c := range created {
				_ = p.drv.Remove(context.Background(), c, true)
			}
			return fmt.Errorf("%w: create sandbox container %d: %v", driver.ErrFatal, i, err)
		}

		if _, err := p.drv.Exec(ctx, h, []string{"mkdir", "-p", Workspace}, "/", p.timeout(nil)); err != nil {
			for _, c := range append(created, h) {
				_ = p.drv.Remove(context.Background(), c, true)
			}
			return fmt.Errorf("%w: ensure workspace in container %d: %v", driver.ErrFatal, i, err)
		}

		created = append(created, h)
	}

	p.mu.Lock()
	p.owned = created
	p.mu.Unlock()

	for _, h := range created {
		p.idle <- h
	}

	log.Info().Int("size", p.opts.Size).Msg("sandbox pool ready")
	return nil
}

// Shutdown force-removes every owned container and drains the idle queue.
// Individual removal failures are logged, never propagated; Shutdown never errors.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	owned := p.owned
	p.owned = nil
	p.mu.Unlock()

	for _, h := range owned {
		if err := p.drv.Remove(ctx, h, true); err != nil {
			log.Warn().Err(err).Str("container", h.ShortID).Msg("failed to remove sandbox container")
		}
	}

drain:
	for {
		select {
		case <-p.idle:
		default:
			break drain
		}
	}

	if err := p.drv.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close container driver")
	}
	log.Info().Msg("sandbox pool shut down")
}

// Acquire returns an idle container, blocking until one is available or ctx
// is canceled.
func (p *Pool) Acquire(ctx context.Context) (*driver.Handle, error) {
	select {
	case h := <-p.idle:
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns h to the idle set. The workspace is intentionally left
// as-is so multi-step workflows (write then read) keep working across calls.
func (p *Pool) Release(h *driver.Handle) {
	p.idle <- h
}

// ResetWorkspace best-effort deletes everything under /workspace, including
// dotfiles. Failures are logged, not raised.
func (p *Pool) ResetWorkspace(ctx context.Context, h *driver.Handle) {
	_, err := p.drv.Exec(ctx, h, []string{"sh", "-c", "rm -rf /workspace/* /workspace/.[!.]* 2>/dev/null || true"}, Workspace, p.timeout(nil))
	if err != nil {
		log.Warn().Err(err).Str("container", h.ShortID).Msg("failed to reset sandbox workspace")
	}
}

// Healthy reports whether the underlying container runtime is reachable.
func (p *Pool) Healthy(ctx context.Context) error {
	return p.drv.Healthy(ctx)
}

func (p *Pool) timeout(override *time.Duration) time.Duration {
	if override != nil && *override > 0 {
		return *override
	}
	return p.opts.DefaultTimeout
}

// ExecCode runs code in the given container using language's canonical
// one-shot invocation. Unsupported languages never touch the container.
func (p *Pool) ExecCode(ctx context.Context, h *driver.Handle, code, language string, timeout *time.Duration) (ExecResult, error) {
	argvPrefix, ok := languageCommands[strings.ToLower(language)]
	if !ok {
		return ExecResult{
			Stdout:   "",
			Stderr:   fmt.Sprintf("Unsupported language: %s. Supported: %s", language, strings.Join(supportedLanguages(), ", ")),
			ExitCode: 1,
		}, nil
	}

	argv := append(append([]string{}, argvPrefix...), code)
	raw, err := p.drv.Exec(ctx, h, argv, Workspace, p.timeout(timeout))
	if err != nil {
		return ExecResult{}, err
	}

	stdout, stdoutTrunc := clip(raw.Stdout, p.opts.MaxOutputSize)
	stderr, stderrTrunc := clip(raw.Stderr, p.opts.MaxOutputSize)

	return ExecResult{
		Stdout:    stdout,
		Stderr:    stderr,
		ExitCode:  raw.ExitCode,
		Truncated: stdoutTrunc || stderrTrunc,
	}, nil
}

// FileRead returns the raw bytes of resolvedPath, extracted from a
// single-entry archive stream.
func (p *Pool) FileRead(ctx context.Context, h *driver.Handle, resolvedPath string) ([]byte, error) {
	stream, err := p.drv.ArchiveGet(ctx, h, resolvedPath)
	if err != nil {
		if err == driver.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer stream.Close()

	data, err := extractSingleFile(stream)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// FileWrite creates parent directories as needed, then writes content to
// resolvedPath atomically via an archive stream. Returns bytes written.
func (p *Pool) FileWrite(ctx context.Context, h *driver.Handle, resolvedPath string, content []byte) (int, error) {
	parent := path.Dir(resolvedPath)
	if parent == "" {
		parent = "/"
	}
	if _, err := p.drv.Exec(ctx, h, []string{"mkdir", "-p", parent}, Workspace, p.timeout(nil)); err != nil {
		return 0, fmt.Errorf("ensure parent directory %s: %w", parent, err)
	}

	archive, err := buildFileArchive(path.Base(resolvedPath), content)
	if err != nil {
		return 0, err
	}
	if err := p.drv.ArchivePut(ctx, h, parent, archive); err != nil {
		return 0, err
	}
	return len(content), nil
}

// FileList returns a long-form, hidden-entries-included directory listing
// of resolvedPath, as produced by the container's `ls -la`.
func (p *Pool) FileList(ctx context.Context, h *driver.Handle, resolvedPath string) (string, error) {
	raw, err := p.drv.Exec(ctx, h, []string{"ls", "-la", resolvedPath}, Workspace, p.timeout(nil))
	if err != nil {
		return "", err
	}
	if raw.ExitCode != 0 {
		return "", fmt.Errorf("%w: cannot list path %s: %s", ErrNotFound, resolvedPath, string(raw.Stderr))
	}
	text, _ := clip(raw.Stdout, p.opts.MaxOutputSize)
	return text, nil
}

// clip decodes raw bytes (replacing invalid UTF-8) and, if the RAW byte
// length exceeds max, truncates and appends the truncation marker. The
// length check runs on the raw bytes so the boundary is exact: output at
// precisely max bytes is never marked truncated.
func clip(raw []byte, max int) (string, bool) {
	truncated := false
	if max > 0 && len(raw) > max {
		raw = raw[:max]
		truncated = true
	}
	text := toValidUTF8(raw)
	if truncated {
		text += "\n... [output truncated]"
	}
	return text, truncated
}

// toValidUTF8 decodes b as UTF-8, replacing invalid sequences with U+FFFD
// rather than rejecting the input outright.
func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}
