package svcheck

// Operation represents a systemctl-level operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpRestart restarts a unit
	OpRestart
	// OpStatus queries a unit's human-readable status
	OpStatus
	// OpShow queries unit properties in key=value form
	OpShow
	// OpIsActive queries whether a unit is active
	OpIsActive
	// OpList enumerates units
	OpList
	// OpDaemonReload reloads the systemd manager configuration
	OpDaemonReload
	// OpScan represents the inventory scan
	OpScan
	// OpWatch represents unit directory watching
	OpWatch
)

// Operation string constants
const (
	opUnknownStr      = "unknown"
	opRestartStr      = "restart"
	opStatusStr       = "status"
	opShowStr         = "show"
	opIsActiveStr     = "is-active"
	opListStr         = "list-units"
	opDaemonReloadStr = "daemon-reload"
	opScanStr         = "scan"
	opWatchStr        = "watch"
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpRestart:
		return opRestartStr
	case OpStatus:
		return opStatusStr
	case OpShow:
		return opShowStr
	case OpIsActive:
		return opIsActiveStr
	case OpList:
		return opListStr
	case OpDaemonReload:
		return opDaemonReloadStr
	case OpScan:
		return opScanStr
	case OpWatch:
		return opWatchStr
	default:
		return opUnknownStr
	}
}
