package archweb

import (
	"bufio"
	"io"
	"strings"
)

// ParseDesc parses the block format used by pacman database desc and
// depends files: a %BLOCKNAME% header line followed by one value per line,
// blocks separated by blank lines. Block names are lowercased.
func ParseDesc(r io.Reader) (map[string][]string, error) {
	store := make(map[string][]string)
	var block string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") && len(line) > 2:
			block = strings.ToLower(line[1 : len(line)-1])
			if _, ok := store[block]; !ok {
				store[block] = []string{}
			}
		case block != "":
			store[block] = append(store[block], line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return store, nil
}

// stripVersion removes a version constraint from a dependency spec,
// e.g. "glibc>=2.38" becomes "glibc"
func stripVersion(dep string) string {
	if idx := strings.IndexAny(dep, "<>="); idx >= 0 {
		return dep[:idx]
	}
	return dep
}

// stripOptDesc removes the description from an optdepends entry,
// e.g. "gtk3: for the GUI" becomes "gtk3"
func stripOptDesc(dep string) string {
	if idx := strings.Index(dep, ":"); idx >= 0 {
		return dep[:idx]
	}
	return dep
}
