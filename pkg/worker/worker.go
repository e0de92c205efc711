package worker

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jmsperu/sms-suite-whmcs-sub001/pkg/logger"
)

type Handler = func(workerIndex int, job interface{})

// Pool is a fixed-size goroutine pool fed through a shared job channel.
// Workers run until Exit is called or a SIGTERM is delivered; the job
// channel itself is never closed because other producers may still hold it.
type Pool struct {
	bufferSize int
	jobs       chan interface{}
	size       int
	sigTerm    chan os.Signal
	do         Handler
	waiter     *sync.WaitGroup
}

func NewPool(bufferSize, numberOfWorkers int, jobs chan interface{}) *Pool {
	if jobs == nil {
		jobs = make(chan interface{}, bufferSize)
	}
	// buffered so every worker can receive one termination signal
	sigChan := make(chan os.Signal, numberOfWorkers)
	signal.Notify(sigChan, syscall.SIGTERM)

	return &Pool{
		bufferSize: bufferSize,
		size:       numberOfWorkers,
		jobs:       jobs,
		sigTerm:    sigChan,
		waiter:     &sync.WaitGroup{},
	}
}

func (w *Pool) SetWorker(h Handler) { w.do = h }

func (w *Pool) Enqueue(val interface{}) { w.jobs <- val }

func (w *Pool) Pending() int64 { return int64(len(w.jobs)) }

// Start blocks until every worker has terminated.
func (w *Pool) Start() error {
	w.waiter.Add(w.size)
	for i := 0; i < w.size; i++ {
		go func(index int) {
			for {
				select {
				case job := <-w.jobs:
					w.do(index, job)
				case <-w.sigTerm:
					w.waiter.Done()
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()
	return errors.New("workers terminated")
}

func (w *Pool) Exit() {
	logger.Info("worker pool shutting down", "workers", w.size)
	for i := 0; i < w.size; i++ {
		w.sigTerm <- syscall.SIGTERM
	}
}
