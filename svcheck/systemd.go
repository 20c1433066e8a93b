package svcheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Default settings for the systemd client
const (
	// DefaultSystemctlPath is the default path to the systemctl binary
	DefaultSystemctlPath = "systemctl"

	// DefaultSudoCommand is the default command used to elevate privileges
	DefaultSudoCommand = "sudo"

	// DefaultTimeout is the default per-call timeout for systemctl operations
	DefaultTimeout = 30 * time.Second
)

// execFunc runs an external command and returns its combined stdout.
// It exists so tests can substitute a fake without spawning systemctl.
type execFunc func(ctx context.Context, name string, args ...string) (string, error)

// ClientSystemd provides control and query operations for systemd units.
// It shells out to systemctl; one client serves any number of units.
type ClientSystemd struct {
	// SystemctlPath is the path to the systemctl binary
	SystemctlPath string

	// UseSudo indicates whether to prefix systemctl commands with sudo
	UseSudo bool

	// SudoCommand is the privilege elevation command (default: "sudo")
	SudoCommand string

	// Timeout is the per-call timeout for systemctl operations
	Timeout time.Duration

	exec execFunc
}

// SystemdOption configures a ClientSystemd
type SystemdOption func(*ClientSystemd)

// WithSudo configures sudo usage and the sudo command
func WithSudo(use bool, command string) SystemdOption {
	return func(c *ClientSystemd) {
		c.UseSudo = use
		if command != "" {
			c.SudoCommand = command
		}
	}
}

// WithSystemctlPath sets the path to the systemctl binary
func WithSystemctlPath(path string) SystemdOption {
	return func(c *ClientSystemd) {
		c.SystemctlPath = path
	}
}

// WithTimeout sets the per-call timeout for systemctl operations
func WithTimeout(d time.Duration) SystemdOption {
	return func(c *ClientSystemd) {
		c.Timeout = d
	}
}

// NewClientSystemd creates a ClientSystemd with default settings.
// Sudo is enabled automatically when not running as root.
func NewClientSystemd(opts ...SystemdOption) *ClientSystemd {
	c := &ClientSystemd{
		SystemctlPath: DefaultSystemctlPath,
		UseSudo:       os.Geteuid() != 0,
		SudoCommand:   DefaultSudoCommand,
		Timeout:       DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.exec = c.runCommand
	return c
}

// runCommand executes a command, capturing stdout and folding stderr into
// the returned error
func (c *ClientSystemd) runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("%w (stderr: %s)", err, msg)
		}
		return stdout.String(), err
	}

	return stdout.String(), nil
}

// execSystemctl executes a systemctl command with optional sudo and the
// client's timeout applied
func (c *ClientSystemd) execSystemctl(ctx context.Context, args ...string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if c.UseSudo {
		sudoArgs := append([]string{c.SystemctlPath}, args...)
		return c.exec(ctx, c.SudoCommand, sudoArgs...)
	}
	return c.exec(ctx, c.SystemctlPath, args...)
}

// Restart restarts the unit. The restart is issued exactly once; callers
// must not retry on failure since the state change is externally visible.
func (c *ClientSystemd) Restart(ctx context.Context, unit string) error {
	if _, err := c.execSystemctl(ctx, "restart", unit); err != nil {
		return &OpError{Op: OpRestart, Unit: unit, Err: err}
	}
	return nil
}

// Status returns the human-readable output of systemctl status for the
// unit, unmodified. systemctl exits nonzero for inactive or failed units;
// that is still a successful query here and the output is returned as-is.
func (c *ClientSystemd) Status(ctx context.Context, unit string) (string, error) {
	out, err := c.execSystemctl(ctx, "status", "--no-pager", "--full", unit)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && out != "" {
			return out, nil
		}
		return "", &OpError{Op: OpStatus, Unit: unit, Err: err}
	}
	return out, nil
}

// Show queries unit properties and parses the key=value output
func (c *ClientSystemd) Show(ctx context.Context, unit string, properties ...string) (map[string]string, error) {
	args := []string{"show", "--no-pager"}
	for _, p := range properties {
		args = append(args, "-p", p)
	}
	args = append(args, unit)

	out, err := c.execSystemctl(ctx, args...)
	if err != nil {
		return nil, &OpError{Op: OpShow, Unit: unit, Err: err}
	}

	props := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			props[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return props, nil
}

// MainPID returns the unit's main process ID. It returns ErrNoMainPID when
// the unit has no running main process.
func (c *ClientSystemd) MainPID(ctx context.Context, unit string) (int, error) {
	out, err := c.execSystemctl(ctx, "show", "-p", "MainPID", "--value", unit)
	if err != nil {
		return 0, &OpError{Op: OpShow, Unit: unit, Err: err}
	}

	pidStr := strings.TrimSpace(out)
	if pidStr == "" || pidStr == "0" {
		return 0, &OpError{Op: OpShow, Unit: unit, Err: ErrNoMainPID}
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, &OpError{Op: OpShow, Unit: unit, Err: fmt.Errorf("parsing MainPID %q: %w", pidStr, err)}
	}
	return pid, nil
}

// IsActive checks whether the unit is currently active. systemctl exits
// with code 3 for inactive units, which is a status, not an error.
func (c *ClientSystemd) IsActive(ctx context.Context, unit string) (bool, error) {
	out, err := c.execSystemctl(ctx, "is-active", unit)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 3 {
			return false, nil
		}
		return false, &OpError{Op: OpIsActive, Unit: unit, Err: err}
	}
	return strings.TrimSpace(out) == "active", nil
}

// ListRunning returns the names of all running service units
func (c *ClientSystemd) ListRunning(ctx context.Context) ([]string, error) {
	out, err := c.execSystemctl(ctx,
		"list-units", "--type=service", "--state=running",
		"--plain", "--no-legend", "--full")
	if err != nil {
		return nil, &OpError{Op: OpList, Err: err}
	}
	return parseUnitList(out), nil
}

// DaemonReload reloads the systemd manager configuration
func (c *ClientSystemd) DaemonReload(ctx context.Context) error {
	if _, err := c.execSystemctl(ctx, "daemon-reload"); err != nil {
		return &OpError{Op: OpDaemonReload, Err: err}
	}
	return nil
}

// parseUnitList extracts unit names from plain no-legend list-units output.
// The unit name is the first whitespace-separated column of each line.
func parseUnitList(out string) []string {
	var units []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		// A bullet column appears before the name for failed units
		name := fields[0]
		if (name == "●" || name == "*") && len(fields) > 1 {
			name = fields[1]
		}
		units = append(units, name)
	}
	return units
}
