package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"
)

// Func is one unit of background work.
type Func func(ctx context.Context) (string, error)

// ResultCallback is invoked on completion from a worker goroutine. The
// event loop passes a closure that posts back into the loop.
type ResultCallback func(text string, err error)

// Pool is a fixed-size worker pool with a bounded input queue.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
	once sync.Once
}

type job struct {
	ctx  context.Context
	name string
	fn   Func
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0 and the
// queue to one slot when queue<=0.
func New(size, queue int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = 1
	}
	p := &Pool{jobs: make(chan job, queue)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				start := time.Now()
				text, err := run(j.ctx, j.fn)
				log.Printf("Worker: %s finished in %v, text length=%d, err=%v", j.name, time.Since(start).Round(time.Millisecond), len(text), err)
				j.cb(text, err)
			}
		}()
	}
}

// Submit enqueues a job if the queue has room. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, name string, fn Func, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, name: name, fn: fn, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining queued work.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

// run honours ctx even when fn does not.
func run(ctx context.Context, fn Func) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := ctx.Deadline(); !ok {
		return fn(ctx)
	}
	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := fn(ctx)
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()
	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
