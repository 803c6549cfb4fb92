package telemetry

import (
	"fmt"
	"log/slog"
	"math"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkPinsBroken   BookmarkType = "pins_broken"
	BookmarkEnergySpike  BookmarkType = "energy_spike"
	BookmarkBlowup       BookmarkType = "blowup"
	BookmarkSettled      BookmarkType = "settled"
	BookmarkStepsAborted BookmarkType = "steps_aborted"
)

// Thresholds used by the detector.
const (
	settleSpeed   = 0.05 // m/s
	settleWindows = 5
	minSpikeKE    = 1e-3 // J
	minBlowupV    = 2.0  // m/s
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Step        int64        `csv:"step"`
	SimTime     float64      `csv:"sim_time"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments from window stats.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	settledCount int
	moved        bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark
	add := func(b *Bookmark) {
		if b != nil {
			b.Step = stats.WindowEnd
			b.SimTime = stats.SimTime
			bookmarks = append(bookmarks, *b)
		}
	}

	add(bd.checkPinsBroken(stats))
	add(bd.checkStepsAborted(stats))
	add(bd.checkBlowup(stats))
	add(bd.checkEnergySpike(stats))
	add(bd.checkSettled(stats))

	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
	return bookmarks
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkPinsBroken(stats WindowStats) *Bookmark {
	if stats.PinBreaks == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkPinsBroken,
		Description: fmt.Sprintf("%d pins broke, max force %.2f", stats.PinBreaks, stats.MaxPinForce),
	}
}

func (bd *BookmarkDetector) checkStepsAborted(stats WindowStats) *Bookmark {
	if stats.AbortedSteps == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkStepsAborted,
		Description: fmt.Sprintf("%d steps rolled back", stats.AbortedSteps),
	}
}

// checkBlowup fires on non-finite speeds, or speeds far above the recent
// average such as an over-compressed fluid exploding.
func (bd *BookmarkDetector) checkBlowup(stats WindowStats) *Bookmark {
	if math.IsNaN(stats.MaxSpeed) || math.IsInf(stats.MaxSpeed, 0) {
		return &Bookmark{Type: BookmarkBlowup, Description: "non-finite particle speed"}
	}
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}
	var total float64
	for _, h := range history {
		total += h.MaxSpeed
	}
	avg := total / float64(len(history))
	if stats.MaxSpeed > minBlowupV && stats.MaxSpeed > 4*avg {
		return &Bookmark{
			Type:        BookmarkBlowup,
			Description: fmt.Sprintf("Max speed %.2f is %.1fx average (%.2f)", stats.MaxSpeed, stats.MaxSpeed/max(avg, 1e-9), avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkEnergySpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}
	var total float64
	for _, h := range history {
		total += h.MeanKineticEnergy
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}
	if stats.MeanKineticEnergy > 3*avg && stats.MeanKineticEnergy > minSpikeKE {
		return &Bookmark{
			Type:        BookmarkEnergySpike,
			Description: fmt.Sprintf("Kinetic energy %.3f is %.1fx average (%.3f)", stats.MeanKineticEnergy, stats.MeanKineticEnergy/avg, avg),
		}
	}
	return nil
}

// checkSettled fires once when a scene that was moving stays below the
// settle speed for settleWindows windows.
func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	moving := !(stats.MaxSpeed < settleSpeed) // NaN counts as moving
	if moving {
		bd.moved = true
	}
	if stats.ActiveParticles == 0 || moving {
		bd.settledCount = 0
		return nil
	}
	bd.settledCount++
	if bd.settledCount == settleWindows && bd.moved {
		bd.moved = false
		return &Bookmark{
			Type:        BookmarkSettled,
			Description: fmt.Sprintf("%d particles at rest over %d windows", stats.ActiveParticles, settleWindows),
		}
	}
	return nil
}
