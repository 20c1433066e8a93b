package archweb

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// MaxExamplePackages bounds how many requiring packages are listed per
// maintainer in the report
const MaxExamplePackages = 3

// OrphanReport summarizes one orphan still required by maintained
// packages: which maintainers' packages keep it alive
type OrphanReport struct {
	// Orphan is the orphaned package name
	Orphan string
	// ByMaintainer maps a maintainer to the packages of theirs that
	// require the orphan
	ByMaintainer map[string][]string
}

// BuildReports resolves maintainers for every package requiring one of the
// still-required orphans and groups the result per orphan and maintainer.
// Maintainer lookups are cached on the Package so each package is queried
// at most once.
func BuildReports(ctx context.Context, client *Client, pkgs map[string]*Package, required Set) ([]OrphanReport, error) {
	reports := make([]OrphanReport, 0, len(required))

	for _, orphan := range required.Sorted() {
		pkg, ok := pkgs[orphan]
		if !ok {
			continue
		}

		report := OrphanReport{
			Orphan:       orphan,
			ByMaintainer: make(map[string][]string),
		}

		for _, depName := range pkg.RequiredBy.Sorted() {
			dep, ok := pkgs[depName]
			if !ok {
				continue
			}

			if dep.Maintainers == nil {
				maintainers, err := client.Maintainers(ctx, dep.Repo, dep.Arch, dep.Name)
				if err != nil {
					return nil, err
				}
				if maintainers == nil {
					maintainers = []string{}
				}
				dep.Maintainers = maintainers
			}

			for _, maint := range dep.Maintainers {
				report.ByMaintainer[maint] = append(report.ByMaintainer[maint], depName)
			}
		}

		reports = append(reports, report)
	}

	return reports, nil
}

// WriteReport renders the cleanup report: orphans still required by
// maintained packages grouped by maintainer, then the unneeded orphans
func WriteReport(w io.Writer, reports []OrphanReport, unneeded Set) {
	fmt.Fprintln(w, "Orphans required by maintained packages:")
	for _, report := range reports {
		fmt.Fprintf(w, "- %s:\n", report.Orphan)

		maintainers := make([]string, 0, len(report.ByMaintainer))
		for maint := range report.ByMaintainer {
			maintainers = append(maintainers, maint)
		}
		sort.Strings(maintainers)

		for _, maint := range maintainers {
			pkgNames := report.ByMaintainer[maint]
			if len(pkgNames) > MaxExamplePackages {
				pkgNames = pkgNames[:MaxExamplePackages]
			}
			fmt.Fprintf(w, "    %s: %s\n", maint, strings.Join(pkgNames, ", "))
		}
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Unneeded orphans:")
	for _, name := range unneeded.Sorted() {
		fmt.Fprintln(w, name)
	}
}
