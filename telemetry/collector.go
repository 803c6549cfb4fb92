package telemetry

// Collector counts solver events between window flushes.
type Collector struct {
	emitted     int
	expired     int
	killed      int
	pinBreaks   int
	aborted     int
	maxPinForce float32
}

// NewCollector creates an empty event collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record counts one event.
func (c *Collector) Record(e Event) {
	if c == nil {
		return
	}
	switch e.Type {
	case EventEmit:
		c.emitted++
	case EventExpire:
		c.expired++
	case EventKill:
		c.killed++
	case EventPinBreak:
		c.pinBreaks++
		c.maxPinForce = max(c.maxPinForce, e.Amount)
	case EventStepAborted:
		c.aborted++
	}
}

// Pending returns the number of events recorded since the last flush.
func (c *Collector) Pending() int {
	if c == nil {
		return 0
	}
	return c.emitted + c.expired + c.killed + c.pinBreaks + c.aborted
}

// Flush copies the event counts into stats and resets them for the next
// window. Pin breaks summed from step stats are kept when larger.
func (c *Collector) Flush(stats *WindowStats) {
	if c == nil {
		return
	}
	stats.Emitted = c.emitted
	stats.Expired = c.expired
	stats.Killed = c.killed
	stats.AbortedSteps = c.aborted
	stats.PinBreaks = max(stats.PinBreaks, c.pinBreaks)
	stats.MaxPinForce = float64(c.maxPinForce)

	// Reset for next window
	c.emitted = 0
	c.expired = 0
	c.killed = 0
	c.pinBreaks = 0
	c.aborted = 0
	c.maxPinForce = 0
}
