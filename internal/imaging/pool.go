package imaging

import (
	"runtime"
	"sync"
)

// Pool runs independent image conditioning jobs across a fixed set of workers.
// Callers that need to join a batch wrap their jobs with their own WaitGroup;
// the pool itself only bounds parallelism.
type Pool struct {
	workers  int
	jobQueue chan func()
	once     sync.Once
}

// NewPool creates a pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start initializes and starts all workers in the pool
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

// worker processes jobs from the job queue
func (p *Pool) worker() {
	for job := range p.jobQueue {
		job()
	}
}

// Submit adds a job to the pool queue
func (p *Pool) Submit(job func()) {
	p.jobQueue <- job
}

// Close shuts down the pool
func (p *Pool) Close() {
	close(p.jobQueue)
}
