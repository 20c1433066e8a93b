// Command aursearch searches the AUR and prints matching packages with
// their version, vote count, and description.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/axondata/go-archtools/aur"
)

type flagOptions struct {
	By   string `short:"b" long:"by" default:"name-desc" choice:"name" choice:"name-desc" choice:"maintainer" choice:"depends" choice:"makedepends" description:"field to search by"`
	Info bool   `short:"i" long:"info" description:"look up exact package names instead of searching"`

	Args struct {
		Terms []string `positional-arg-name:"term" required:"yes"`
	} `positional-args:"yes"`
}

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "aursearch: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := aur.NewClient()

	var pkgs []aur.Package
	var err error
	if opts.Info {
		pkgs, err = client.Info(ctx, opts.Args.Terms...)
	} else {
		pkgs, err = client.Search(ctx, aur.SearchBy(opts.By), opts.Args.Terms[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "aursearch: %v\n", err)
		os.Exit(1)
	}

	if len(pkgs) == 0 {
		fmt.Println("No packages found.")
		return
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].NumVotes > pkgs[j].NumVotes })

	for _, p := range pkgs {
		flagged := ""
		if p.OutOfDate > 0 {
			flagged = " [out of date]"
		}
		fmt.Printf("%s %s (%d votes)%s\n", p.Name, p.Version, p.NumVotes, flagged)
		if p.Description != "" {
			fmt.Printf("    %s\n", p.Description)
		}
	}
}
