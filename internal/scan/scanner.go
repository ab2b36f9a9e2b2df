package scan

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
	"relmatch/internal/shape"
	"relmatch/internal/storage"
)

type Scanner struct {
	WorkerPool *WorkerPool
}

func NewScanner(workers int, shapes []shape.Shape, emitter storage.Emitter) *Scanner {
	return &Scanner{
		WorkerPool: NewWorkerPool(workers, shapes, emitter),
	}
}

// Run feeds every relationship from reader through the pool and waits for
// evaluation to finish. Stats reflect the candidates evaluated even when
// Run returns an error.
func (s *Scanner) Run(ctx context.Context, reader *storage.JSONLReader) (Stats, error) {
	s.WorkerPool.Start()

	err := s.feed(ctx, reader)
	s.WorkerPool.Stop()

	stats := s.WorkerPool.Stats()
	zap.L().Debug("scan finished",
		zap.Int("lines", reader.Line()),
		zap.Int64("candidates", stats.Candidates),
		zap.Int64("matches", stats.Matches),
		zap.Int64("misses", stats.Misses),
	)
	return stats, err
}

func (s *Scanner) feed(ctx context.Context, reader *storage.JSONLReader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		s.WorkerPool.Submit(rel)
	}
}
