package worker

import (
	"context"
	"sync"
)

// DefaultWorkers is the fan-out width used across retrieval and annotation
const DefaultWorkers = 5

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers. Results are handed back in
// submission order, whatever order the jobs finish in.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once

	submitted int
	collected map[int]Result
	collectWG sync.WaitGroup
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		results:    make(chan indexedResult, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		collected:  make(map[int]Result),
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	p.collectWG.Add(1)
	go p.collect()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker is the worker goroutine that processes jobs
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- indexedResult{index: ij.index, result: ij.job.Execute(p.ctx)}
		}
	}
}

// collect drains results concurrently so workers never block on a full channel
func (p *Pool) collect() {
	defer p.collectWG.Done()
	for r := range p.results {
		p.collected[r.index] = r.result
	}
}

// Submit queues a job and returns its position in the result slice.
// Jobs submitted after cancellation are skipped and yield a nil result.
func (p *Pool) Submit(job Job) int {
	index := p.submitted
	p.submitted++

	select {
	case <-p.ctx.Done():
	case p.jobQueue <- indexedJob{index: index, job: job}:
	}
	return index
}

// Wait waits for all jobs to complete and returns the results in submission order
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
	p.cancelFunc()

	results := make([]Result, p.submitted)
	for i, r := range p.collected {
		results[i] = r
	}
	return results
}

// Shutdown stops the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	p.collectWG.Wait()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

type funcResult[R any] struct {
	value R
	err   error
}

func (r *funcResult[R]) GetError() error {
	return r.err
}

type funcJob[T, R any] struct {
	index int
	item  T
	fn    func(ctx context.Context, i int, item T) (R, error)
}

func (j *funcJob[T, R]) Execute(ctx context.Context) Result {
	v, err := j.fn(ctx, j.index, j.item)
	return &funcResult[R]{value: v, err: err}
}

// Map applies fn to every item using at most workers goroutines.
// out[i] always corresponds to items[i]. The error of the lowest failing
// index is returned alongside the partial results.
func Map[T, R any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out, nil
	}

	pool := NewPool(ctx, workers)
	pool.Start()
	for i, item := range items {
		pool.Submit(&funcJob[T, R]{index: i, item: item, fn: fn})
	}

	var firstErr error
	for i, res := range pool.Wait() {
		if res == nil {
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			continue
		}
		fr := res.(*funcResult[R])
		out[i] = fr.value
		if fr.err != nil && firstErr == nil {
			firstErr = fr.err
		}
	}
	return out, firstErr
}
