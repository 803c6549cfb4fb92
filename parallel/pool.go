// Package parallel provides the fork-join worker pool used by the solver to
// spread batch projection and per-particle passes over the available cores.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the minimum item count to use the workers.
// Below this, single-threaded is faster due to goroutine overhead.
const DefaultThreshold = 64

// ChunkFunc processes items [start, end) on the given worker.
type ChunkFunc func(start, end, worker int)

// workChunk represents a range of items for a worker to process.
type workChunk struct {
	start, end int
	fn         ChunkFunc
}

// Pool is a set of persistent workers. A nil *Pool runs everything inline.
type Pool struct {
	numWorkers int
	threshold  int

	mu       sync.Mutex     // serializes For calls
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// NewPool creates a pool with n workers. n <= 0 uses GOMAXPROCS.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Pool{numWorkers: n, threshold: DefaultThreshold}
}

// SetThreshold changes the minimum item count for parallel dispatch.
func (p *Pool) SetThreshold(n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.threshold = max(n, 1)
	p.mu.Unlock()
}

// Workers returns the number of workers (1 for a nil pool).
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

// startWorkers launches persistent worker goroutines.
func (p *Pool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end, id)
			p.doneChan <- struct{}{}
		}
	}
}

// For splits [0, n) into contiguous chunks, one per worker, and blocks until
// all of them are processed. Small ranges run inline on worker 0.
func (p *Pool) For(n int, fn ChunkFunc) {
	if n <= 0 {
		return
	}
	if p == nil || p.numWorkers == 1 {
		fn(0, n, 0)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if n < p.threshold {
		fn(0, n, 0)
		return
	}
	if !p.running {
		p.startWorkers()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// Close signals all workers to exit and waits for them.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}
