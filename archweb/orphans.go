package archweb

// requireFields are the dependency kinds that keep an orphan alive for the
// reverse-dependency check. optdepends intentionally counts only for the
// forward "is it needed at all" pass, matching pacman's treatment of
// optional dependencies as non-blocking.
var requireFields = []string{"depends", "makedepends", "checkdepends"}

// FindUnneededOrphans returns the orphans that no package in the database
// depends on through any dependency field
func FindUnneededOrphans(pkgs map[string]*Package, orphans Set) Set {
	required := make(Set)
	for _, pkg := range pkgs {
		for _, field := range depFields {
			required.AddAll(pkg.depSet(field))
		}
	}

	return orphans.Diff(required)
}

// WhatRequires returns the names of packages that depend on the given
// package through depends, makedepends, or checkdepends
func WhatRequires(pkgs map[string]*Package, name string) Set {
	requiredBy := make(Set)
	for _, pkg := range pkgs {
		for _, field := range requireFields {
			if pkg.depSet(field).Has(name) {
				requiredBy.Add(pkg.Name)
				break
			}
		}
	}
	return requiredBy
}

// ClassifyOrphans splits the orphan set into orphans nothing needs and
// orphans still required by maintained packages. An orphan required only
// by other orphans counts as unneeded. RequiredBy is filled on the
// corresponding packages as a side effect.
func ClassifyOrphans(pkgs map[string]*Package, orphans Set) (unneeded Set, required Set) {
	unneeded = FindUnneededOrphans(pkgs, orphans)
	required = make(Set)

	for orphan := range orphans.Diff(unneeded) {
		requiredBy := WhatRequires(pkgs, orphan)
		if pkg, ok := pkgs[orphan]; ok {
			pkg.RequiredBy = requiredBy
		}

		if requiredBy.SubsetOf(orphans) {
			unneeded.Add(orphan)
		} else {
			required.Add(orphan)
		}
	}

	return unneeded, required
}
