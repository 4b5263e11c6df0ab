package driver

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunc is one unit of connection-handling work.
type WorkerFunc = func(t *tomb.Tomb, task any) error

// WorkerPool runs a fixed number of goroutines, each pulling tasks off a
// shared channel, supervised by a tomb so the whole pool winds down
// together when the driver shuts down. Adapted from the teacher's
// internal/worker.go.
type WorkerPool struct {
	n     int
	tasks chan any
}

// NewWorkerPool creates a pool of size workers, each accepting tasks
// through a buffered channel.
func NewWorkerPool(size int) *WorkerPool {
	return &WorkerPool{
		n:     size,
		tasks: make(chan any, taskChanSize),
	}
}

// AddTask enqueues a task for the next free worker.
func (p *WorkerPool) AddTask(task any) {
	p.tasks <- task
}

// Run keeps p.n workers alive under t until t starts dying.
func (p *WorkerPool) Run(t *tomb.Tomb, work WorkerFunc) {
	log.Info().Int("workers", p.n).Msg("starting worker pool")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < p.n {
				t.Go(func() error {
					err := p.worker(t, work)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (p *WorkerPool) worker(t *tomb.Tomb, work WorkerFunc) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-p.tasks:
		if err := work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting on error")
			return err
		}
	}
	return nil
}
