package evolve

import (
	"context"
	"runtime"
	"sync"
)

// evalChunk is a range of jobs for one worker.
type evalChunk struct {
	ctx        context.Context
	start, end int
}

// pool evaluates jobs on a set of persistent workers. Each result is
// written to its own slot, so workers never share state.
type pool struct {
	fn         func(context.Context, evalJob) evalResult
	jobs       []evalJob
	results    []evalResult
	numWorkers int

	workChan chan evalChunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

func newPool(workers int, fn func(context.Context, evalJob) evalResult) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &pool{fn: fn, numWorkers: workers}
}

// run evaluates every job and returns the results in job order. The
// returned slice is reused by the next call.
func (p *pool) run(ctx context.Context, jobs []evalJob) []evalResult {
	n := len(jobs)
	p.jobs = jobs
	if cap(p.results) < n {
		p.results = make([]evalResult, n)
	}
	p.results = p.results[:n]

	if n == 0 {
		return p.results
	}
	if p.numWorkers == 1 || n == 1 {
		p.compute(ctx, 0, n)
		return p.results
	}

	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers
	dispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		p.workChan <- evalChunk{ctx: ctx, start: start, end: end}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
	return p.results
}

func (p *pool) compute(ctx context.Context, i0, i1 int) {
	for i := i0; i < i1; i++ {
		p.results[i] = p.fn(ctx, p.jobs[i])
	}
}

func (p *pool) start() {
	p.workChan = make(chan evalChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
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
			p.compute(chunk.ctx, chunk.start, chunk.end)
			p.doneChan <- struct{}{}
		}
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
