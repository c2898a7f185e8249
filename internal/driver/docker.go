package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog/log"
)

// SandboxLabel is attached to every container this driver creates, so an
// operator can distinguish pool containers from unrelated ones on the host.
const SandboxLabel = "sandboxd.pool"

// DockerDriver implements Driver using the Docker Engine API.
type DockerDriver struct {
	cli *client.Client
}

// NewDocker creates a Driver backed by the Docker daemon reachable from the
// process environment (DOCKER_HOST and friends).
func NewDocker() (*DockerDriver, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerDriver{cli: cli}, nil
}

func (d *DockerDriver) Healthy(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

func (d *DockerDriver) Close() error {
	return d.cli.Close()
}

// ImageEnsure pulls ref only if no local copy exists.
func (d *DockerDriver) ImageEnsure(ctx context.Context, ref string) error {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", ref, err)
	}

	log.Info().Str("image", ref).Msg("sandbox image not found locally, pulling")
	reader, err := d.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("%w: pull image %s: %v", ErrFatal, ref, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("%w: drain pull output for %s: %v", ErrFatal, ref, err)
	}
	return nil
}

// Create provisions and starts a container that sleeps forever, ready to be exec'd into.
func (d *DockerDriver) Create(ctx context.Context, spec Spec) (*Handle, error) {
	hostConfig := &container.HostConfig{
		Resources: container.Resources{
			NanoCPUs: spec.NanoCPUs,
			Memory:   spec.MemoryBytes,
		},
		Mounts: []mount.Mount{
			{Type: mount.TypeTmpfs, Target: "/tmp"},
		},
		NetworkMode: "bridge",
		ExtraHosts:  []string{"host.docker.internal:host-gateway"},
	}

	labels := map[string]string{SandboxLabel: "true"}

	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Cmd:        []string{"sleep", "infinity"},
			Labels:     labels,
			WorkingDir: spec.WorkDir,
			OpenStdin:  true,
		},
		hostConfig,
		nil,
		nil,
		"",
	)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	if err := d.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		_ = d.cli.ContainerRemove(ctx, resp.ID, types.ContainerRemoveOptions{Force: true})
		return nil, fmt.Errorf("start container: %w", err)
	}

	short := resp.ID
	if len(short) > 12 {
		short = short[:12]
	}
	return &Handle{ID: resp.ID, ShortID: short}, nil
}

// Exec runs argv inside the container, enforcing timeout and demuxing streams.
func (d *DockerDriver) Exec(ctx context.Context, h *Handle, argv []string, workdir string, timeout time.Duration) (ExecResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type execOutcome struct {
		result ExecResult
		err    error
	}
	done := make(chan execOutcome, 1)

	go func() {
		res, err := d.doExec(execCtx, h, argv, workdir)
		done <- execOutcome{res, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-execCtx.Done():
		d.killProcessTree(context.Background(), h, argv)
		return ExecResult{
			ExitCode: -1,
			Stderr:   []byte(fmt.Sprintf("Execution timed out after %d seconds", int(timeout.Seconds()))),
		}, nil
	}
}

func (d *DockerDriver) doExec(ctx context.Context, h *Handle, argv []string, workdir string) (ExecResult, error) {
	execResp, err := d.cli.ContainerExecCreate(ctx, h.ID, types.ExecConfig{
		Cmd:          argv,
		WorkingDir:   workdir,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return ExecResult{}, ErrNotFound
		}
		return ExecResult{}, fmt.Errorf("exec create: %w", err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec attach: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil && err != io.EOF {
		return ExecResult{}, fmt.Errorf("demux exec stream: %w", err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("exec inspect: %w", err)
	}

	return ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}

// killProcessTree makes a best-effort attempt to kill the process started by
// argv inside the container after a timeout. Failures are logged, not raised.
func (d *DockerDriver) killProcessTree(ctx context.Context, h *Handle, argv []string) {
	if len(argv) == 0 {
		return
	}
	killCmd := []string{"pkill", "-f", argv[0]}
	execResp, err := d.cli.ContainerExecCreate(ctx, h.ID, types.ExecConfig{Cmd: killCmd})
	if err != nil {
		log.Warn().Err(err).Str("container", h.ShortID).Msg("failed to create kill exec after timeout")
		return
	}
	if err := d.cli.ContainerExecStart(ctx, execResp.ID, types.ExecStartCheck{}); err != nil {
		log.Warn().Err(err).Str("container", h.ShortID).Msg("failed to kill timed-out process")
	}
}

// ArchiveGet returns a tar stream of path from the container.
func (d *DockerDriver) ArchiveGet(ctx context.Context, h *Handle, path string) (io.ReadCloser, error) {
	reader, _, err := d.cli.CopyFromContainer(ctx, h.ID, path)
	if err != nil {
		if client.IsErrNotFound(err) || strings.Contains(err.Error(), "No such container:path") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("copy from container: %w", err)
	}
	return reader, nil
}

// ArchivePut extracts tarStream under parentDir inside the container.
func (d *DockerDriver) ArchivePut(ctx context.Context, h *Handle, parentDir string, tarStream io.Reader) error {
	if err := d.cli.CopyToContainer(ctx, h.ID, parentDir, tarStream, types.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy to container: %w", err)
	}
	return nil
}

// Remove force-removes the container. Removing an already-gone container is a no-op.
func (d *DockerDriver) Remove(ctx context.Context, h *Handle, force bool) error {
	err := d.cli.ContainerRemove(ctx, h.ID, types.ContainerRemoveOptions{Force: force, RemoveVolumes: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("remove container: %w", err)
	}
	return nil
}
