// Command checkservices finds systemd services running with deleted
// binaries or libraries after a package upgrade and restarts them,
// reporting each service's status as soon as its restart finishes.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/axondata/go-archtools/svcheck"
)

type flagOptions struct {
	NoConfirm    bool     `long:"noconfirm" description:"restart without asking for confirmation"`
	List         bool     `short:"l" long:"list" description:"list services that need restarting, restart nothing"`
	Status       bool     `short:"s" long:"status" description:"show each service's status after its restart (default)"`
	NoStatus     bool     `long:"no-status" description:"do not show service status after restarts"`
	Serialize    bool     `short:"z" long:"serialize" description:"restart services one at a time instead of concurrently"`
	UserSlice    bool     `long:"user-slice" description:"include services running in user slices"`
	MachineSlice bool     `long:"machine-slice" description:"include services running in machine slices"`
	Ignore       []string `short:"i" long:"ignore" description:"glob pattern of services to skip (repeatable)"`
	ConfigPath   string   `short:"c" long:"config" description:"path to the configuration file"`
	Watch        bool     `short:"w" long:"watch" description:"watch unit directories and report changed units"`
	Verbose      bool     `short:"v" long:"verbose" description:"enable debug logging"`

	Args struct {
		Services []string `positional-arg-name:"service"`
	} `positional-args:"yes"`
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "checkservices: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(opts.Verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := svcheck.LoadConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "checkservices: %v\n", err)
		os.Exit(2)
	}
	cfg = mergeFlags(cfg, opts)

	useSudo := os.Geteuid() != 0
	if useSudo {
		if _, err := exec.LookPath(cfg.SudoCommand); err != nil {
			fmt.Fprintf(os.Stderr, "checkservices: %v: install %s or run as root\n",
				svcheck.ErrNotPrivileged, cfg.SudoCommand)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Watch {
		os.Exit(watchUnits(ctx, logger))
	}

	client := svcheck.NewClientSystemd(svcheck.WithSudo(useSudo, cfg.SudoCommand))

	services := opts.Args.Services
	if len(services) == 0 {
		scanner := svcheck.NewScanner(client,
			svcheck.WithUserSlice(cfg.UserSlice),
			svcheck.WithMachineSlice(cfg.MachineSlice),
			svcheck.WithIgnore(cfg.Ignore...),
			svcheck.WithScannerLogger(logger))

		services, err = scanner.Scan(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "checkservices: %v\n", err)
			os.Exit(1)
		}
	}

	if len(services) == 0 {
		fmt.Println("No services need restarting.")
		return
	}

	fmt.Println("Services to restart:")
	for _, s := range services {
		fmt.Printf("  %s\n", s)
	}

	if cfg.ListOnly {
		return
	}

	if !cfg.NoConfirm && !confirm("Restart these services? [Y/n] ") {
		return
	}

	orch := svcheck.NewOrchestrator(client, cfg,
		svcheck.WithOrchestratorLogger(logger))
	if err := orch.Run(ctx, services); err != nil {
		fmt.Fprintf(os.Stderr, "checkservices: %v\n", err)
		os.Exit(1)
	}
}

// mergeFlags folds command-line flags over the file configuration; the
// result is the immutable config for the rest of the run
func mergeFlags(cfg svcheck.Config, opts flagOptions) svcheck.Config {
	if opts.NoConfirm {
		cfg.NoConfirm = true
	}
	if opts.List {
		cfg.ListOnly = true
	}
	if opts.Status {
		cfg.ShowStatus = true
	}
	if opts.NoStatus {
		cfg.ShowStatus = false
	}
	if opts.Serialize {
		cfg.Serialize = true
	}
	if opts.UserSlice {
		cfg.UserSlice = true
	}
	if opts.MachineSlice {
		cfg.MachineSlice = true
	}
	cfg.Ignore = append(cfg.Ignore, opts.Ignore...)
	return cfg
}

// confirm asks a yes/no question on stdin, defaulting to yes
func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes"
}

// watchUnits reports unit files changing on disk until interrupted
func watchUnits(ctx context.Context, logger *zap.Logger) int {
	watcher := svcheck.NewUnitWatcher(svcheck.WithWatcherLogger(logger))

	events, cleanup, err := watcher.Watch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "checkservices: %v\n", err)
		return 1
	}
	defer func() { _ = cleanup() }()

	fmt.Println("Watching unit directories; press Ctrl-C to stop.")
	for {
		select {
		case <-ctx.Done():
			return 0
		case ev, ok := <-events:
			if !ok {
				return 0
			}
			if ev.Err != nil {
				fmt.Fprintf(os.Stderr, "checkservices: watch: %v\n", ev.Err)
				continue
			}
			fmt.Printf("unit changed: %s (%s)\n", ev.Unit, ev.Path)
		}
	}
}
