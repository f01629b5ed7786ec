package nodestore

// Status is the cook state of a node.
type Status int

const (
	// StatusDirty means the cached output, if any, is stale.
	StatusDirty Status = iota
	// StatusCooking means a cook is in flight.
	StatusCooking
	// StatusClean means the cached output is current.
	StatusClean
	// StatusErrored means the last cook failed.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusDirty:
		return "dirty"
	case StatusCooking:
		return "cooking"
	case StatusClean:
		return "clean"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}
