package archweb

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"
)

// depFields are the dependency block names collected from the database
var depFields = []string{"depends", "makedepends", "optdepends", "checkdepends"}

// Package holds the fields of one package from a sync database that the
// orphan analysis needs. All dependency sets have version constraints and
// optdepends descriptions stripped; missing fields are empty, never nil.
type Package struct {
	// Name is the package name
	Name string
	// Base is the pkgbase, when split from a base package
	Base string
	// Repo is the repository the package came from
	Repo string
	// Arch is the package architecture
	Arch string
	// Depends, MakeDepends, OptDepends, CheckDepends are the dependency sets
	Depends      Set
	MakeDepends  Set
	OptDepends   Set
	CheckDepends Set
	// Maintainers is filled lazily from the archweb API
	Maintainers []string
	// RequiredBy is filled by the orphan analysis
	RequiredBy Set
}

// depSet returns the named dependency set
func (p *Package) depSet(field string) Set {
	switch field {
	case "depends":
		return p.Depends
	case "makedepends":
		return p.MakeDepends
	case "optdepends":
		return p.OptDepends
	case "checkdepends":
		return p.CheckDepends
	default:
		return nil
	}
}

// setDepSet replaces the named dependency set
func (p *Package) setDepSet(field string, s Set) {
	switch field {
	case "depends":
		p.Depends = s
	case "makedepends":
		p.MakeDepends = s
	case "optdepends":
		p.OptDepends = s
	case "checkdepends":
		p.CheckDepends = s
	}
}

// ParseRepoDB reads one pacman sync database (a possibly gzip-compressed
// tar archive with one directory per package holding desc and depends
// files) and returns its packages keyed by name.
func ParseRepoDB(r io.Reader, repo string) (map[string]*Package, error) {
	br := bufio.NewReader(r)

	// Sync databases are normally gzip-compressed; sniff the magic so an
	// uncompressed archive still parses
	magic, err := br.Peek(2)
	if err != nil {
		return nil, fmt.Errorf("reading %s db: %w", repo, err)
	}

	var tr *tar.Reader
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s db: %w", repo, err)
		}
		defer func() { _ = gz.Close() }()
		tr = tar.NewReader(gz)
	} else {
		tr = tar.NewReader(br)
	}

	// blocks accumulates desc and depends content per package directory;
	// both files use the same block format and merge cleanly
	blocks := make(map[string]map[string][]string)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s db: %w", repo, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		base := path.Base(hdr.Name)
		if base != "desc" && base != "depends" {
			continue
		}
		pkgid := path.Dir(hdr.Name)

		parsed, err := ParseDesc(tr)
		if err != nil {
			return nil, fmt.Errorf("parsing %s/%s: %w", pkgid, base, err)
		}

		merged, ok := blocks[pkgid]
		if !ok {
			merged = make(map[string][]string)
			blocks[pkgid] = merged
		}
		for block, values := range parsed {
			merged[block] = append(merged[block], values...)
		}
	}

	pkgs := make(map[string]*Package, len(blocks))
	for pkgid, merged := range blocks {
		names := merged["name"]
		if len(names) == 0 {
			return nil, fmt.Errorf("package entry %s has no name", pkgid)
		}

		pkg := &Package{
			Name: names[0],
			Repo: repo,
		}
		if bases := merged["base"]; len(bases) > 0 {
			pkg.Base = bases[0]
		}
		if arches := merged["arch"]; len(arches) > 0 {
			pkg.Arch = arches[0]
		}

		for _, field := range depFields {
			set := NewSet(merged[field]...)
			if field == "optdepends" {
				cleaned := make(Set, len(set))
				for dep := range set {
					cleaned.Add(stripOptDesc(dep))
				}
				set = cleaned
			}
			stripped := make(Set, len(set))
			for dep := range set {
				stripped.Add(strings.TrimSpace(stripVersion(dep)))
			}
			pkg.setDepSet(field, stripped)
		}

		pkgs[pkg.Name] = pkg
	}

	return pkgs, nil
}
