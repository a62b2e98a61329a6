package monitor

import (
	"context"
	"log"
	"time"

	"github.com/lox/riverwatch/internal/models"
)

// Scheduler runs full monitoring passes on an interval for serve mode.
type Scheduler struct {
	evaluator *Evaluator
	interval  time.Duration
	onResults func([]models.SiteCondition)
}

func NewScheduler(evaluator *Evaluator, interval time.Duration, onResults func([]models.SiteCondition)) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		onResults: onResults,
	}
}

// Run evaluates immediately, then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	results := s.evaluator.CheckAll(ctx)
	log.Printf("scheduler: evaluated %d site(s) in %s", len(results), time.Since(started).Round(time.Millisecond))

	if s.onResults != nil {
		s.onResults(results)
	}
}
