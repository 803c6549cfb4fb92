package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hasBookmark(bookmarks []Bookmark, bt BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == bt {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_PinsBroken(t *testing.T) {
	bd := NewBookmarkDetector(10)

	assert.Empty(t, bd.Check(WindowStats{WindowEnd: 30, ActiveParticles: 1, MaxSpeed: 1}))
	bookmarks := bd.Check(WindowStats{WindowEnd: 60, PinBreaks: 2, MaxPinForce: 12, ActiveParticles: 1, MaxSpeed: 1})
	if !hasBookmark(bookmarks, BookmarkPinsBroken) {
		t.Fatal("expected pins_broken bookmark")
	}
	assert.Equal(t, int64(60), bookmarks[0].Step)
	assert.Contains(t, bookmarks[0].Description, "2 pins")
}

func TestBookmarkDetector_Blowup(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 5; i++ {
		assert.Empty(t, bd.Check(WindowStats{WindowEnd: int64(i * 30), ActiveParticles: 64, MaxSpeed: 0.5, MeanKineticEnergy: 0.1}))
	}

	bookmarks := bd.Check(WindowStats{WindowEnd: 180, ActiveParticles: 64, MaxSpeed: 8, MeanKineticEnergy: 0.1})
	if !hasBookmark(bookmarks, BookmarkBlowup) {
		t.Error("expected blowup bookmark")
	}

	// Non-finite speeds fire without history.
	fresh := NewBookmarkDetector(10)
	assert.True(t, hasBookmark(fresh.Check(WindowStats{MaxSpeed: math.NaN()}), BookmarkBlowup))
	assert.True(t, hasBookmark(fresh.Check(WindowStats{MaxSpeed: math.Inf(1)}), BookmarkBlowup))
}

func TestBookmarkDetector_EnergySpike(t *testing.T) {
	bd := NewBookmarkDetector(10)
	for i := 0; i < 4; i++ {
		bd.Check(WindowStats{ActiveParticles: 10, MaxSpeed: 1, MeanKineticEnergy: 0.5})
	}
	assert.False(t, hasBookmark(bd.Check(WindowStats{ActiveParticles: 10, MaxSpeed: 1, MeanKineticEnergy: 1}), BookmarkEnergySpike))
	assert.True(t, hasBookmark(bd.Check(WindowStats{ActiveParticles: 10, MaxSpeed: 1, MeanKineticEnergy: 5}), BookmarkEnergySpike))
}

func TestBookmarkDetector_Settled(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// A scene that never moved does not report settling.
	for i := 0; i < 8; i++ {
		assert.False(t, hasBookmark(bd.Check(WindowStats{ActiveParticles: 10, MaxSpeed: 0.01}), BookmarkSettled))
	}

	bd.Check(WindowStats{ActiveParticles: 10, MaxSpeed: 2})
	fired := 0
	for i := 0; i < 10; i++ {
		if hasBookmark(bd.Check(WindowStats{ActiveParticles: 10, MaxSpeed: 0.01}), BookmarkSettled) {
			fired++
			assert.Equal(t, 4, i, "fires on the fifth quiet window")
		}
	}
	assert.Equal(t, 1, fired)
}

func TestBookmarkDetector_StepsAborted(t *testing.T) {
	bd := NewBookmarkDetector(3)
	bookmarks := bd.Check(WindowStats{AbortedSteps: 1, WindowEnd: 9, SimTime: 0.15})
	if assert.True(t, hasBookmark(bookmarks, BookmarkStepsAborted)) {
		assert.InDelta(t, 0.15, bookmarks[0].SimTime, 1e-12)
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector()
	c.Record(NewEmitEvent(1, 4, 2))
	c.Record(NewEmitEvent(1, 5, 2))
	c.Record(NewExpireEvent(3, 4))
	c.Record(NewKillEvent(3, 5))
	c.Record(NewPinBreakEvent(4, 0, 1, 7.5))
	c.Record(NewPinBreakEvent(4, 1, 1, 3))
	c.Record(NewStepAbortedEvent(5))
	assert.Equal(t, 7, c.Pending())

	ws := WindowStats{PinBreaks: 1}
	c.Flush(&ws)
	assert.Equal(t, 2, ws.Emitted)
	assert.Equal(t, 1, ws.Expired)
	assert.Equal(t, 1, ws.Killed)
	assert.Equal(t, 2, ws.PinBreaks)
	assert.Equal(t, 1, ws.AbortedSteps)
	assert.InDelta(t, 7.5, ws.MaxPinForce, 1e-6)

	assert.Zero(t, c.Pending())
	var empty WindowStats
	c.Flush(&empty)
	assert.Equal(t, WindowStats{}, empty)

	var nilCollector *Collector
	assert.NotPanics(t, func() {
		nilCollector.Record(NewKillEvent(0, 0))
		nilCollector.Flush(&empty)
	})
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "pin_break", EventPinBreak.String())
	assert.Equal(t, "step_aborted", EventStepAborted.String())
	assert.Equal(t, "unknown", EventType(200).String())
}
