// Command cleanup-list cross-references the archweb orphan list against
// the dependency fields of every package in the sync databases and prints
// which orphans can be dropped and which are still required, grouped by
// the maintainers of the requiring packages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/renameio/v2"
	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/axondata/go-archtools/archweb"
)

type flagOptions struct {
	Mirror  string `short:"m" long:"mirror" default:"http://mirror.pkgbuild.com" description:"mirror to download sync databases from"`
	Output  string `short:"o" long:"output" description:"write the report to a file instead of stdout"`
	Verbose bool   `short:"v" long:"verbose" description:"enable debug logging"`
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
		fmt.Fprintf(os.Stderr, "cleanup-list: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(opts.Verbose)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "cleanup-list: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts flagOptions, logger *zap.Logger) error {
	client := archweb.NewClient(
		archweb.WithMirrorURL(opts.Mirror),
		archweb.WithLogger(logger))

	tmpDir, err := os.MkdirTemp("", "cleanup-list-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	logger.Info("downloading sync databases", zap.Strings("repos", client.Repos))
	pkgs, err := client.LoadPackages(ctx, tmpDir)
	if err != nil {
		return err
	}

	logger.Info("fetching orphan list")
	orphans, err := client.Orphans(ctx)
	if err != nil {
		return err
	}

	unneeded, required := archweb.ClassifyOrphans(pkgs, orphans)

	logger.Info("resolving maintainers of requiring packages",
		zap.Int("required_orphans", len(required)))
	reports, err := archweb.BuildReports(ctx, client, pkgs, required)
	if err != nil {
		return err
	}

	if opts.Output == "" {
		archweb.WriteReport(os.Stdout, reports, unneeded)
		return nil
	}

	out, err := renameio.TempFile("", opts.Output)
	if err != nil {
		return err
	}
	defer func() { _ = out.Cleanup() }()

	archweb.WriteReport(out, reports, unneeded)
	return out.CloseAtomicallyReplace()
}
