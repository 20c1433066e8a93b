package archweb

import (
	"testing"
)

// pkg builds a minimal package with the given depends entries
func pkg(name string, depends ...string) *Package {
	return &Package{
		Name:         name,
		Repo:         "extra",
		Arch:         "x86_64",
		Depends:      NewSet(depends...),
		MakeDepends:  NewSet(),
		OptDepends:   NewSet(),
		CheckDepends: NewSet(),
	}
}

func TestFindUnneededOrphans(t *testing.T) {
	pkgs := map[string]*Package{
		"app":       pkg("app", "libneeded"),
		"libneeded": pkg("libneeded"),
		"libdead":   pkg("libdead"),
	}
	orphans := NewSet("libneeded", "libdead")

	unneeded := FindUnneededOrphans(pkgs, orphans)

	if !unneeded.Has("libdead") {
		t.Error("libdead should be unneeded")
	}
	if unneeded.Has("libneeded") {
		t.Error("libneeded is depended on and should not be unneeded")
	}
}

func TestFindUnneededOrphansCountsOptDepends(t *testing.T) {
	pkgs := map[string]*Package{
		"app":    pkg("app"),
		"libopt": pkg("libopt"),
	}
	pkgs["app"].OptDepends = NewSet("libopt")

	unneeded := FindUnneededOrphans(pkgs, NewSet("libopt"))
	if unneeded.Has("libopt") {
		t.Error("an optdepends reference keeps an orphan needed")
	}
}

func TestWhatRequires(t *testing.T) {
	pkgs := map[string]*Package{
		"a": pkg("a", "target"),
		"b": pkg("b"),
		"c": pkg("c"),
	}
	pkgs["b"].MakeDepends = NewSet("target")
	pkgs["c"].OptDepends = NewSet("target")

	got := WhatRequires(pkgs, "target")

	if !got.Has("a") || !got.Has("b") {
		t.Errorf("requiredBy = %v, want a and b", got.Sorted())
	}
	if got.Has("c") {
		t.Error("optdepends must not count for WhatRequires")
	}
}

func TestClassifyOrphans(t *testing.T) {
	pkgs := map[string]*Package{
		"app":        pkg("app", "libkept"),
		"libkept":    pkg("libkept"),
		"liborphan1": pkg("liborphan1", "liborphan2"),
		"liborphan2": pkg("liborphan2"),
		"libdead":    pkg("libdead"),
	}
	orphans := NewSet("libkept", "liborphan1", "liborphan2", "libdead")

	unneeded, required := ClassifyOrphans(pkgs, orphans)

	// libkept is required by a maintained package
	if !required.Has("libkept") {
		t.Error("libkept should be in the required set")
	}
	if unneeded.Has("libkept") {
		t.Error("libkept should not be unneeded")
	}

	// libdead has no reverse dependencies at all
	if !unneeded.Has("libdead") {
		t.Error("libdead should be unneeded")
	}

	// liborphan2 is only required by another orphan
	if !unneeded.Has("liborphan2") {
		t.Error("an orphan required only by orphans is unneeded")
	}

	if pkgs["libkept"].RequiredBy == nil || !pkgs["libkept"].RequiredBy.Has("app") {
		t.Error("RequiredBy should be recorded on the package")
	}
}

func TestSetOperations(t *testing.T) {
	s := NewSet("a", "b", "c")

	if !s.SubsetOf(NewSet("a", "b", "c", "d")) {
		t.Error("subset check failed")
	}
	if s.SubsetOf(NewSet("a", "b")) {
		t.Error("superset misclassified as subset")
	}

	diff := s.Diff(NewSet("b"))
	if diff.Has("b") || !diff.Has("a") || !diff.Has("c") {
		t.Errorf("diff = %v", diff.Sorted())
	}

	sorted := s.Sorted()
	if len(sorted) != 3 || sorted[0] != "a" || sorted[2] != "c" {
		t.Errorf("sorted = %v", sorted)
	}
}
