// Command checkurls verifies that URLs are still alive, reading them from
// arguments or stdin and printing one OK/FAIL line per URL as each check
// finishes. It exits nonzero when any URL is dead.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/axondata/go-archtools/urlcheck"
)

type flagOptions struct {
	Concurrency int           `short:"n" long:"concurrency" default:"10" description:"maximum concurrent checks"`
	Timeout     time.Duration `short:"t" long:"timeout" default:"15s" description:"per-URL timeout"`
	Verbose     bool          `short:"v" long:"verbose" description:"enable debug logging"`

	Args struct {
		URLs []string `positional-arg-name:"url"`
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
		fmt.Fprintf(os.Stderr, "checkurls: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(opts.Verbose)
	defer func() { _ = logger.Sync() }()

	urls := opts.Args.URLs
	if len(urls) == 0 {
		urls = readLines(os.Stdin)
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "checkurls: no URLs given")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := urlcheck.NewChecker(
		urlcheck.WithConcurrency(opts.Concurrency),
		urlcheck.WithTimeout(opts.Timeout),
		urlcheck.WithLogger(logger))

	failed := 0
	for result := range checker.Check(ctx, urls) {
		if result.OK() {
			fmt.Printf("OK   %s (%d, %s)\n", result.URL, result.StatusCode, result.Elapsed.Round(time.Millisecond))
			continue
		}
		failed++
		if result.Err != nil {
			fmt.Printf("FAIL %s (%v)\n", result.URL, result.Err)
		} else {
			fmt.Printf("FAIL %s (%d)\n", result.URL, result.StatusCode)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "checkurls: %d of %d URLs failed\n", failed, len(urls))
		os.Exit(1)
	}
}

// readLines reads non-empty, non-comment lines from r
func readLines(r *os.File) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
