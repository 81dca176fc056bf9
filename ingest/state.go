package ingest

// State is the connection state of a worker.
type State int32

// Worker states. Values match the metric.Source* gauge values.
const (
	Disconnected State = iota
	Connecting
	Polling
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Polling:
		return "polling"
	default:
		return "unknown"
	}
}
