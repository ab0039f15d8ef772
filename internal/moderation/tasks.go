package moderation

import (
	"log"
	"sync"
)

// Runner executes a unit of work off the caller's event loop
type Runner interface {
	Submit(name string, fn func())
}

// TaskPool is a bounded worker pool that recovers and logs panics from
// submitted tasks. A panicking task terminates alone; the pool and every
// other task keep running.
type TaskPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewTaskPool creates a pool allowing up to workers concurrent tasks
func NewTaskPool(workers int) *TaskPool {
	if workers <= 0 {
		workers = 1
	}
	return &TaskPool{sem: make(chan struct{}, workers)}
}

// Submit runs fn on the pool, blocking the caller only when all workers are
// busy
func (p *TaskPool) Submit(name string, fn func()) {
	p.sem <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Recovered panic in task %q: %v", name, r)
			}
			<-p.sem
			p.wg.Done()
		}()
		fn()
	}()
}

// Wait blocks until every submitted task has finished
func (p *TaskPool) Wait() {
	p.wg.Wait()
}
