// Package archweb talks to the Arch Linux package infrastructure: it
// downloads and parses pacman sync databases from a mirror and queries the
// archweb JSON API for orphaned packages and package maintainers.
//
// Its main consumer is the cleanup-list tool, which cross-references the
// orphan list against the dependency fields of every package in the sync
// databases to find orphans nothing depends on anymore.
package archweb
