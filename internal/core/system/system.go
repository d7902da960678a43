package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: connects, disconnects, packets
	PhasePreUpdate               // 1: events reported during the last tick
	PhaseUpdate                  // 2: behavior ticks
	PhasePostUpdate              // 3: respawns
	PhaseOutput                  // 4: replication + flush
	PhaseCleanup                 // 5: consistency checks

	phaseCount
)

// System is the interface every game loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
