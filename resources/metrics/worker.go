package metrics

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Worker samples process metrics on a fixed interval until stopped.
type Worker struct {
	metrics  *Metrics
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	started time.Time
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// StartWorker takes one sample right away, then one per interval.
func (m *Metrics) StartWorker(clk clock.Clock, interval time.Duration, logger *slog.Logger) *Worker {
	w := &Worker{
		metrics:  m,
		clock:    clk,
		interval: interval,
		logger:   logger,
		started:  clk.Now(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	w.sample()
	ticker := clk.Ticker(interval)
	go w.run(ticker)

	logger.Debug("metrics worker started", "interval", interval)
	return w
}

func (w *Worker) run(ticker *clock.Ticker) {
	defer close(w.done)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *Worker) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	w.metrics.goroutines.Set(float64(runtime.NumGoroutine()))
	w.metrics.heapBytes.Set(float64(mem.HeapAlloc))
	w.metrics.uptime.Set(w.clock.Since(w.started).Seconds())
	w.metrics.samples.Inc()
}

// Stop ends the worker and waits for it. Safe to call more than once.
func (w *Worker) Stop() {
	w.once.Do(func() {
		close(w.stop)
		<-w.done
		w.logger.Debug("metrics worker stopped")
	})
}
