package scan

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"relmatch/internal/graph"
	"relmatch/internal/matcher"
	"relmatch/internal/shape"
	"relmatch/internal/storage"
)

// Stats summarises a scan.
type Stats struct {
	Candidates int64 `json:"candidates"`
	Matches    int64 `json:"matches"`
	Misses     int64 `json:"misses"`
	EmitErrors int64 `json:"emitErrors"`
}

type namedMatcher struct {
	name    string
	matcher *matcher.Matcher
}

type WorkerPool struct {
	workers  int
	matchers []namedMatcher
	emitter  storage.Emitter
	jobChan  chan *graph.Relationship
	wg       sync.WaitGroup

	candidates atomic.Int64
	matches    atomic.Int64
	misses     atomic.Int64
	emitErrors atomic.Int64
}

func NewWorkerPool(workers int, shapes []shape.Shape, emitter storage.Emitter) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	matchers := make([]namedMatcher, len(shapes))
	for i, s := range shapes {
		matchers[i] = namedMatcher{name: s.Name, matcher: s.Matcher()}
	}
	return &WorkerPool{
		workers:  workers,
		matchers: matchers,
		emitter:  emitter,
		jobChan:  make(chan *graph.Relationship, 100),
	}
}

func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for rel := range wp.jobChan {
		wp.evaluate(rel)
	}
}

// evaluate emits one match per shape rel conforms to, or a single miss.
func (wp *WorkerPool) evaluate(rel *graph.Relationship) {
	wp.candidates.Inc()

	matched := false
	for _, nm := range wp.matchers {
		if !nm.matcher.Matches(rel) {
			continue
		}
		matched = true
		wp.matches.Inc()
		if err := wp.emitter.EmitMatch(nm.name, rel); err != nil {
			wp.emitErrors.Inc()
			zap.S().Errorf("Error emitting match for shape %s: %v", nm.name, err)
		}
	}

	if matched {
		return
	}
	wp.misses.Inc()
	if err := wp.emitter.EmitMiss(rel); err != nil {
		wp.emitErrors.Inc()
		zap.S().Errorf("Error emitting miss for %s: %v", rel, err)
	}
}

func (wp *WorkerPool) Submit(rel *graph.Relationship) {
	wp.jobChan <- rel
}

// Stop waits for all submitted candidates to be evaluated. The pool cannot
// be restarted.
func (wp *WorkerPool) Stop() {
	close(wp.jobChan)
	wp.wg.Wait()
}

func (wp *WorkerPool) Stats() Stats {
	return Stats{
		Candidates: wp.candidates.Load(),
		Matches:    wp.matches.Load(),
		Misses:     wp.misses.Load(),
		EmitErrors: wp.emitErrors.Load(),
	}
}
