package types

// ChannelStatus is the Head lifecycle state. Only events from the head node
// move it; the orchestrator never assigns it directly except the IDLE safe
// default when the node cannot be reached.
type ChannelStatus string

const (
	StatusIdle           ChannelStatus = "IDLE"
	StatusInitializing   ChannelStatus = "INITIALIZING"
	StatusOpen           ChannelStatus = "OPEN"
	StatusClosed         ChannelStatus = "CLOSED"
	StatusFanoutPossible ChannelStatus = "FANOUT_POSSIBLE"
	StatusFinal          ChannelStatus = "FINAL"
)

// ParseChannelStatus maps the head node's reported status strings onto the
// lifecycle enum. Unknown values degrade to IDLE.
func ParseChannelStatus(s string) ChannelStatus {
	switch s {
	case "Idle", "IDLE":
		return StatusIdle
	case "Initializing", "INITIALIZING":
		return StatusInitializing
	case "Open", "OPEN":
		return StatusOpen
	case "Closed", "CLOSED":
		return StatusClosed
	case "FanoutPossible", "FANOUT_POSSIBLE":
		return StatusFanoutPossible
	case "Final", "FINAL":
		return StatusFinal
	default:
		return StatusIdle
	}
}
