// Package svcheck identifies systemd services that need a restart after a
// package upgrade and restarts them, reporting per-service status as each
// restart finishes.
//
// The core functionality centers around three types. The Scanner inspects
// running service units and flags those whose mapped executables or
// libraries have been deleted on disk (replaced by a newer package):
//
//	client := svcheck.NewClientSystemd()
//	scanner := svcheck.NewScanner(client)
//	units, err := scanner.Scan(context.Background())
//
// The Orchestrator restarts a list of units, either one at a time or
// concurrently, and prints each unit's status as soon as its restart
// completes rather than waiting for the slowest one:
//
//	orch := svcheck.NewOrchestrator(client, svcheck.Config{ShowStatus: true})
//	err = orch.Run(context.Background(), units)
//
// The UnitWatcher watches systemd unit directories and reports units whose
// files change on disk, which is useful for spotting pending daemon-reloads
// during long upgrade sessions.
//
// # Design Philosophy
//
// This package prioritizes:
//
//   - One externally visible restart per requested unit, never reissued
//   - Status reports in completion order, not launch order
//   - Fail-fast when a completion cannot be attributed to a tracked job
//   - Context-aware operations with proper timeouts on every systemctl call
//
// A restart failing is not an orchestration error: the failure shows up in
// that unit's status output and the remaining units are still processed.
// The only fatal condition is a completion signal that matches no tracked
// job, which indicates the wait mechanism itself is unreliable.
package svcheck
