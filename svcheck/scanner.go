package svcheck

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// UnitQuerier is the read-only subset of the systemd client the Scanner
// needs. ClientSystemd implements it.
type UnitQuerier interface {
	ListRunning(ctx context.Context) ([]string, error)
	Show(ctx context.Context, unit string, properties ...string) (map[string]string, error)
}

// Scanner identifies running service units whose mapped executables or
// shared libraries have been deleted on disk, which happens when a package
// upgrade replaces the files backing a running process. Every query it
// performs is read-only and idempotent; the resulting unit list is
// deduplicated and keeps the order units were first seen in.
type Scanner struct {
	// ProcDir is the procfs mount point (default: /proc)
	ProcDir string

	// IncludeUserSlice includes units running under user slices
	IncludeUserSlice bool

	// IncludeMachineSlice includes units running under machine slices
	IncludeMachineSlice bool

	// Ignore holds glob patterns for unit names to skip
	Ignore []string

	client UnitQuerier
	logger *zap.Logger
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithProcDir overrides the procfs mount point
func WithProcDir(dir string) ScannerOption {
	return func(s *Scanner) {
		s.ProcDir = dir
	}
}

// WithUserSlice includes units in user slices in the scan
func WithUserSlice(include bool) ScannerOption {
	return func(s *Scanner) {
		s.IncludeUserSlice = include
	}
}

// WithMachineSlice includes units in machine slices in the scan
func WithMachineSlice(include bool) ScannerOption {
	return func(s *Scanner) {
		s.IncludeMachineSlice = include
	}
}

// WithIgnore adds glob patterns for unit names to skip
func WithIgnore(patterns ...string) ScannerOption {
	return func(s *Scanner) {
		s.Ignore = append(s.Ignore, patterns...)
	}
}

// WithScannerLogger sets the logger used for scan diagnostics
func WithScannerLogger(logger *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner backed by the given unit querier
func NewScanner(client UnitQuerier, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		ProcDir: "/proc",
		client:  client,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan returns the units that need a restart. A unit qualifies when its
// main process maps a deleted executable or library. Units that cannot be
// inspected (no main PID, vanished process) are skipped, not fatal.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	units, err := s.client.ListRunning(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []string
	seen := make(map[string]struct{})

	for _, unit := range units {
		if _, dup := seen[unit]; dup {
			continue
		}
		seen[unit] = struct{}{}

		if s.ignored(unit) {
			s.logger.Debug("unit ignored by pattern", zap.String("unit", unit))
			continue
		}

		props, err := s.client.Show(ctx, unit, "MainPID", "Slice")
		if err != nil {
			s.logger.Warn("querying unit properties failed",
				zap.String("unit", unit), zap.Error(err))
			continue
		}

		if !s.sliceAllowed(props["Slice"]) {
			continue
		}

		pid, err := strconv.Atoi(props["MainPID"])
		if err != nil || pid <= 0 {
			continue
		}

		stale, err := s.hasDeletedMappings(pid)
		if err != nil {
			// The process may have exited between Show and the maps read
			s.logger.Debug("reading process maps failed",
				zap.String("unit", unit), zap.Int("pid", pid), zap.Error(err))
			continue
		}

		if stale {
			candidates = append(candidates, unit)
		}
	}

	return candidates, nil
}

// ignored reports whether the unit name matches any ignore pattern
func (s *Scanner) ignored(unit string) bool {
	for _, pattern := range s.Ignore {
		if ok, err := path.Match(pattern, unit); err == nil && ok {
			return true
		}
	}
	return false
}

// sliceAllowed applies the user/machine slice scope filters
func (s *Scanner) sliceAllowed(slice string) bool {
	switch {
	case strings.HasPrefix(slice, "user"):
		return s.IncludeUserSlice
	case strings.HasPrefix(slice, "machine"):
		return s.IncludeMachineSlice
	default:
		return true
	}
}

// hasDeletedMappings reports whether the process maps any deleted file
// that looks like a replaced executable or library
func (s *Scanner) hasDeletedMappings(pid int) (bool, error) {
	mapsPath := filepath.Join(s.ProcDir, strconv.Itoa(pid), "maps")
	f, err := os.Open(mapsPath)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", mapsPath, err)
	}
	defer func() { _ = f.Close() }()

	return len(deletedMappings(f)) > 0, nil
}

// mapsSkipPrefixes lists mapped paths that are expected to be deleted
// during normal operation and do not indicate a replaced binary
var mapsSkipPrefixes = []string{
	"/tmp/",
	"/run/",
	"/dev/",
	"/memfd:",
	"/SYSV",
	"/proc/",
	"/var/tmp/",
	"/drm mm object",
	"/i915",
}

// deletedMappings parses /proc/<pid>/maps content and returns the deleted
// file paths that indicate a binary or library replaced on disk
func deletedMappings(r io.Reader) []string {
	const deletedSuffix = " (deleted)"

	var paths []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasSuffix(line, deletedSuffix) {
			continue
		}

		// Path is the sixth column; it may contain spaces, so cut at the
		// first slash instead of splitting fields
		idx := strings.Index(line, "/")
		if idx < 0 {
			continue
		}
		mapped := strings.TrimSuffix(line[idx:], deletedSuffix)

		if skipMappedPath(mapped) {
			continue
		}
		if _, dup := seen[mapped]; dup {
			continue
		}
		seen[mapped] = struct{}{}
		paths = append(paths, mapped)
	}

	return paths
}

// skipMappedPath reports whether a deleted mapping is expected and benign
func skipMappedPath(mapped string) bool {
	for _, prefix := range mapsSkipPrefixes {
		if strings.HasPrefix(mapped, prefix) {
			return true
		}
	}
	return false
}
