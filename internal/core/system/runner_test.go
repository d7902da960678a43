package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"output", PhaseOutput, &log})
	r.Register(recorder{"input", PhaseInput, &log})
	r.Register(recorder{"update-a", PhaseUpdate, &log})
	r.Register(recorder{"update-b", PhaseUpdate, &log})
	r.Register(recorder{"cleanup", PhaseCleanup, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "update-a", "update-b", "output", "cleanup"}, log)

	log = nil
	r.TickPhase(PhaseUpdate, time.Millisecond)
	assert.Equal(t, []string{"update-a", "update-b"}, log)
}

func TestRunnerRejectsUnknownPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	assert.Panics(t, func() { r.Register(recorder{"bad", Phase(42), &log}) })
	r.TickPhase(Phase(-1), time.Millisecond)
	assert.Empty(t, log)
}
