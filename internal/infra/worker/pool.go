// Package worker provides a small pool for CPU-heavy jobs (video decoding,
// OCR) so they do not run unbounded on request goroutines.
package worker

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"
)

type Task func(ctx context.Context) error

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{jobs: make(chan Task, workers*4), quit: make(chan struct{}), n: workers}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						log.Printf("worker %d task error: %v", id, err)
					}
				}
			}
		}(i)
	}
}

func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// drop when saturated to avoid unbounded back-pressure
		return errors.New("worker queue full")
	}
}

// Do submits task and blocks until it finishes or ctx is cancelled. The
// task runs with the caller's ctx, not the pool's, so an abandoned request
// stops its decode/OCR work instead of running to completion in the
// background. The task's own error is returned verbatim.
func (p *Pool) Do(ctx context.Context, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	done := make(chan error, 1)
	wrapped := func(context.Context) error {
		err := task(ctx)
		done <- err
		return err
	}
	select {
	case p.jobs <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
