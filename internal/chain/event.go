package chain

import (
	"time"

	"missionflow/internal/mission"
)

type EventKind int

const (
	MissionStarted EventKind = iota
	MissionPoint
	MissionCompleted
	ChainCompleted
	ChainStopped
)

func (k EventKind) String() string {
	switch k {
	case MissionStarted:
		return "mission-started"
	case MissionPoint:
		return "mission-point"
	case MissionCompleted:
		return "mission-completed"
	case ChainCompleted:
		return "chain-completed"
	case ChainStopped:
		return "chain-stopped"
	default:
		return "unknown"
	}
}

// Event is a mission event re-published at chain level, or a chain
// lifecycle event (Mission is empty for those).
type Event struct {
	Kind    EventKind
	Chain   string
	Mission string
	RunID   string
	Cycle   int
	Index   int
	Point   string
	State   mission.State
	Err     error
	At      time.Time
}
