package sim

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum live-cell count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// workChunk is a range of jobs for one worker.
type workChunk struct {
	start, end int
}

// pool is a persistent set of workers that compute deltas for chunks of the
// job list. Workers only touch jobs[start:end] and deltas[start:end].
type pool struct {
	numWorkers int
	compute    func(start, end int)

	workChan chan workChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newPool(compute func(start, end int)) *pool {
	return &pool{
		numWorkers: runtime.GOMAXPROCS(0),
		compute:    compute,
	}
}

// start launches the workers if they are not already running.
func (p *pool) start() {
	if p.running {
		return
	}
	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.compute(chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits [0, n) into one chunk per worker and blocks until all are done.
func (p *pool) run(n int) {
	p.start()

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		p.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}
