// internal/matching/rescorer.go
package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/duetapp/duet-backend/internal/taste"
)

// ExternalScorer is the higher-fidelity scoring service the rescorer
// consults. Any error it returns is non-fatal: the stored local score
// stands.
type ExternalScorer interface {
	ScorePair(ctx context.Context, a, b *taste.Profile) (score float64, reason string, err error)
}

// RescoreConfig tunes the rescoring worker pool.
type RescoreConfig struct {
	// Workers is the number of pool goroutines.
	Workers int
	// QueueSize is the capacity of the buffered job channel. Enqueue
	// drops jobs when it is full.
	QueueSize int
	// TopK bounds how many entries of a refill batch are re-scored,
	// picked by best preliminary score.
	TopK int
	// Delay is the fixed minimum interval between external calls,
	// shared across workers.
	Delay time.Duration
	// Timeout is the per-call deadline for the external scorer.
	Timeout time.Duration
}

type rescoreJob struct {
	id          string
	ownerID     int64
	suggestedID int64
}

// RescorePool upgrades freshly queued scores through an external scorer
// without ever touching the request path. Workers run detached from any
// request context: a client disconnect cannot cancel in-flight
// rescoring. Every per-candidate failure is logged and skipped.
type RescorePool struct {
	repo    Repository
	scorer  ExternalScorer
	limiter *rate.Limiter
	logger  *zap.Logger
	cfg     RescoreConfig

	jobs      chan rescoreJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRescorePool creates the pool and starts its workers.
func NewRescorePool(repo Repository, scorer ExternalScorer, logger *zap.Logger, cfg RescoreConfig) *RescorePool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	p := &RescorePool{
		repo:    repo,
		scorer:  scorer,
		limiter: rate.NewLimiter(rate.Every(cfg.Delay), 1),
		logger:  logger,
		cfg:     cfg,
		jobs:    make(chan rescoreJob, cfg.QueueSize),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	return p
}

// EnqueueBatch submits the top-K entries of a refill batch, best
// preliminary score first. Never blocks: jobs that do not fit the queue
// are dropped with a warning.
func (p *RescorePool) EnqueueBatch(entries []*QueueEntry) {
	if len(entries) == 0 {
		return
	}

	ranked := make([]*QueueEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > p.cfg.TopK {
		ranked = ranked[:p.cfg.TopK]
	}

	for _, entry := range ranked {
		job := rescoreJob{
			id:          uuid.NewString(),
			ownerID:     entry.UserID,
			suggestedID: entry.SuggestedUserID,
		}

		select {
		case p.jobs <- job:
			p.logger.Debug("rescore job queued",
				zap.String("job_id", job.id),
				zap.Int64("owner_id", job.ownerID),
				zap.Int64("suggested_user_id", job.suggestedID),
			)
		default:
			p.logger.Warn("rescore queue full, dropping job",
				zap.Int64("owner_id", job.ownerID),
				zap.Int64("suggested_user_id", job.suggestedID),
			)
			RecordRescore("dropped")
		}
	}
}

// Close stops accepting jobs and waits for in-flight rescoring to
// drain. Call during graceful shutdown.
func (p *RescorePool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

func (p *RescorePool) worker() {
	defer p.wg.Done()

	for job := range p.jobs {
		if err := p.limiter.Wait(context.Background()); err != nil {
			return
		}
		p.process(job)
	}
}

// process runs one job under its own Background-derived timeout.
func (p *RescorePool) process(job rescoreJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	ownerProfile, err := p.repo.GetTasteProfile(ctx, job.ownerID)
	if err != nil {
		p.skip(job, "owner profile unavailable", err)
		return
	}

	suggestedProfile, err := p.repo.GetTasteProfile(ctx, job.suggestedID)
	if err != nil {
		p.skip(job, "suggested profile unavailable", err)
		return
	}

	score, reason, err := p.scorer.ScorePair(ctx, ownerProfile, suggestedProfile)
	if err != nil {
		p.skip(job, "external scorer failed, keeping local score", err)
		return
	}

	if err := p.repo.UpdateQueueScore(ctx, job.ownerID, job.suggestedID, score); err != nil {
		p.skip(job, "score update failed", err)
		return
	}

	p.logger.Info("queue score refined",
		zap.String("job_id", job.id),
		zap.Int64("owner_id", job.ownerID),
		zap.Int64("suggested_user_id", job.suggestedID),
		zap.Float64("score", score),
		zap.String("reason", reason),
	)
	RecordRescore("updated")
}

func (p *RescorePool) skip(job rescoreJob, msg string, err error) {
	p.logger.Warn(msg,
		zap.String("job_id", job.id),
		zap.Int64("owner_id", job.ownerID),
		zap.Int64("suggested_user_id", job.suggestedID),
		zap.Error(err),
	)
	RecordRescore("failed")
}
