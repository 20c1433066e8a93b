package archweb

import (
	"fmt"
	"os"
)

// parseRepoDBFile opens a downloaded sync database file and parses it
func parseRepoDBFile(path, repo string) (map[string]*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ParseRepoDB(f, repo)
}
