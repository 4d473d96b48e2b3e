// internal/matching/queue.go
package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// QueueConfig tunes suggestion-queue behavior.
type QueueConfig struct {
	// DefaultCount is the suggestion count assumed when none is given;
	// the post-swipe thinness check also uses it.
	DefaultCount int
	// LowWaterMultiplier: refill when fewer than multiplier × requested
	// entries remain.
	LowWaterMultiplier int
	// RefillBatchSize caps the candidates considered per refill.
	RefillBatchSize int
	// LockTTL bounds the per-owner refill advisory lock lifetime.
	LockTTL time.Duration
	// TriggerSize is the capacity of the post-swipe refill trigger
	// channel.
	TriggerSize int
	// TriggerTimeout bounds each triggered refill.
	TriggerTimeout time.Duration
}

const refillLockPrefix = "matching:refill_lock:"

// QueueManager owns the per-user suggestion queue: reads, refills and
// consumption. Post-swipe refills run on a single detached worker so a
// swipe response never waits on candidate scoring.
type QueueManager struct {
	repo     Repository
	scorer   *Scorer
	rescorer *RescorePool  // optional
	redis    *redis.Client // optional, advisory refill lock only
	logger   *zap.Logger
	cfg      QueueConfig

	triggers  chan int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewQueueManager creates the manager and starts its refill trigger
// worker. rescorer and redisClient may be nil.
func NewQueueManager(repo Repository, scorer *Scorer, rescorer *RescorePool, redisClient *redis.Client, logger *zap.Logger, cfg QueueConfig) *QueueManager {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 10
	}
	if cfg.LowWaterMultiplier <= 0 {
		cfg.LowWaterMultiplier = 2
	}
	if cfg.RefillBatchSize <= 0 {
		cfg.RefillBatchSize = 50
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.TriggerSize <= 0 {
		cfg.TriggerSize = 64
	}
	if cfg.TriggerTimeout <= 0 {
		cfg.TriggerTimeout = 30 * time.Second
	}

	m := &QueueManager{
		repo:     repo,
		scorer:   scorer,
		rescorer: rescorer,
		redis:    redisClient,
		logger:   logger,
		cfg:      cfg,
		triggers: make(chan int64, cfg.TriggerSize),
	}

	m.wg.Add(1)
	go m.refillWorker()

	return m
}

// GetSuggestions returns up to count suggestions for the owner, best
// score first. The owner must exist and carry a usable taste profile;
// that precondition is enforced here and nowhere else. An empty result
// is valid: it means no more candidates, not an error.
func (m *QueueManager) GetSuggestions(ctx context.Context, ownerID int64, count int) ([]*Suggestion, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	if _, err := m.repo.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if err := m.requireProfile(ctx, ownerID); err != nil {
		return nil, err
	}

	remaining, err := m.repo.CountQueueEntries(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if remaining < m.cfg.LowWaterMultiplier*count {
		if _, err := m.Refill(ctx, ownerID); err != nil {
			// Serve whatever is queued rather than failing the read.
			m.logger.Error("refill failed, serving existing queue",
				zap.Int64("owner_id", ownerID),
				zap.Error(err),
			)
		}
	}

	suggestions, err := m.repo.GetQueueEntries(ctx, ownerID, count)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []*Suggestion{}
	}

	return suggestions, nil
}

// Refill scores a fresh batch of eligible candidates for the owner and
// queues them after the current tail. It returns true when at least one
// row persisted; false covers every benign no-op: missing or empty
// owner profile, no eligible candidates, a concurrent refill holding
// the lock, or every row lost to a concurrent insert.
func (m *QueueManager) Refill(ctx context.Context, ownerID int64) (bool, error) {
	unlock, acquired := m.tryLock(ctx, ownerID)
	if !acquired {
		RecordRefill("skipped")
		return false, nil
	}
	defer unlock()

	owner, err := m.repo.GetUser(ctx, ownerID)
	if err != nil {
		return false, err
	}

	profile, err := m.repo.GetTasteProfile(ctx, ownerID)
	if errors.Is(err, ErrProfileNotFound) {
		RecordRefill("empty")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if profile.IsEmpty() {
		RecordRefill("empty")
		return false, nil
	}

	excluded, err := m.exclusionSet(ctx, ownerID)
	if err != nil {
		return false, err
	}

	candidates, err := m.repo.GetCandidates(ctx, excluded, m.cfg.RefillBatchSize)
	if err != nil {
		return false, err
	}
	if len(candidates) == 0 {
		RecordRefill("empty")
		return false, nil
	}

	maxPosition, err := m.repo.MaxQueuePosition(ctx, ownerID)
	if err != nil {
		return false, err
	}

	entries := make([]*QueueEntry, 0, len(candidates))
	for i, candidate := range candidates {
		score := m.scorer.Score(owner, candidate.User, profile, candidate.Profile)
		RecordCompatibilityScore(score)

		entries = append(entries, &QueueEntry{
			UserID:          ownerID,
			SuggestedUserID: candidate.User.ID,
			Score:           score,
			Position:        maxPosition + int64(i) + 1,
		})
	}

	inserted, err := m.repo.InsertQueueEntries(ctx, entries)
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		RecordRefill("empty")
		return false, nil
	}

	m.logger.Info("queue refilled",
		zap.Int64("owner_id", ownerID),
		zap.Int("candidates", len(candidates)),
		zap.Int("inserted", inserted),
	)
	RecordRefill("filled")

	if m.rescorer != nil {
		m.rescorer.EnqueueBatch(entries)
	}

	return true, nil
}

// RemoveEntry consumes a queue entry after a swipe. Absence is not an
// error: the owner may have swiped on someone outside their queue.
func (m *QueueManager) RemoveEntry(ctx context.Context, ownerID, suggestedID int64) error {
	return m.repo.DeleteQueueEntry(ctx, ownerID, suggestedID)
}

// RefillIfThin hands the owner to the trigger worker when their queue
// has dropped below the low-water mark. Never blocks: a full trigger
// channel drops the request, and the next thin GetSuggestions refills
// synchronously anyway.
func (m *QueueManager) RefillIfThin(ctx context.Context, ownerID int64) {
	remaining, err := m.repo.CountQueueEntries(ctx, ownerID)
	if err != nil {
		m.logger.Warn("queue depth check failed",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)
		return
	}

	if remaining >= m.cfg.LowWaterMultiplier*m.cfg.DefaultCount {
		return
	}

	select {
	case m.triggers <- ownerID:
	default:
		m.logger.Warn("refill trigger queue full, dropping",
			zap.Int64("owner_id", ownerID),
		)
		RecordRefill("dropped")
	}
}

// Close stops accepting triggers and waits for the worker to drain.
// Call during graceful shutdown after the HTTP server has stopped.
func (m *QueueManager) Close() {
	m.closeOnce.Do(func() {
		close(m.triggers)
	})
	m.wg.Wait()
}

// refillWorker drains the trigger channel. Each refill gets its own
// context derived from Background so it survives the request that
// triggered it.
func (m *QueueManager) refillWorker() {
	defer m.wg.Done()

	for ownerID := range m.triggers {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.TriggerTimeout)
		if _, err := m.Refill(ctx, ownerID); err != nil {
			m.logger.Error("triggered refill failed",
				zap.Int64("owner_id", ownerID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// exclusionSet = swiped ∪ already queued ∪ {owner}.
func (m *QueueManager) exclusionSet(ctx context.Context, ownerID int64) ([]int64, error) {
	swiped, err := m.repo.GetSwipedUserIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	queued, err := m.repo.GetQueuedUserIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	excluded := make([]int64, 0, len(swiped)+len(queued)+1)
	excluded = append(excluded, ownerID)
	excluded = append(excluded, swiped...)
	excluded = append(excluded, queued...)

	return excluded, nil
}

// requireProfile is the single "has taste profile" precondition for
// queue operations.
func (m *QueueManager) requireProfile(ctx context.Context, ownerID int64) error {
	profile, err := m.repo.GetTasteProfile(ctx, ownerID)
	if err != nil {
		return err
	}
	if profile.IsEmpty() {
		return ErrProfileNotFound
	}
	return nil
}

// tryLock takes the best-effort per-owner refill lock when Redis is
// configured. The lock only avoids duplicate work; the queue's
// uniqueness constraint stays the source of truth. Without Redis every
// refill proceeds.
func (m *QueueManager) tryLock(ctx context.Context, ownerID int64) (func(), bool) {
	if m.redis == nil {
		return func() {}, true
	}

	key := fmt.Sprintf("%s%d", refillLockPrefix, ownerID)
	ok, err := m.redis.SetNX(ctx, key, 1, m.cfg.LockTTL).Result()
	if err != nil {
		// A broken lock service must not stop refills.
		m.logger.Warn("refill lock unavailable, proceeding without it",
			zap.Int64("owner_id", ownerID),
			zap.Error(err),
		)
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}

	return func() {
		if err := m.redis.Del(context.Background(), key).Err(); err != nil {
			m.logger.Warn("refill lock release failed",
				zap.Int64("owner_id", ownerID),
				zap.Error(err),
			)
		}
	}, true
}
