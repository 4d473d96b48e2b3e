package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/duetapp/duet-backend/internal/taste"
	"github.com/duetapp/duet-backend/internal/users"
)

// fakeRepository is an in-memory Repository giving the service-level
// tests real constraint semantics (duplicate pairs, partial batch
// inserts) without a database.
type fakeRepository struct {
	mu sync.Mutex

	users    map[int64]*users.User
	profiles map[int64]*taste.Profile
	swipes   map[[2]int64]*SwipeRecord
	queue    map[int64][]*QueueEntry

	nextSwipeID int64
	nextEntryID int64

	scoreUpdates []scoreUpdate
}

var _ Repository = (*fakeRepository)(nil)

type scoreUpdate struct {
	ownerID     int64
	suggestedID int64
	score       float64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    make(map[int64]*users.User),
		profiles: make(map[int64]*taste.Profile),
		swipes:   make(map[[2]int64]*SwipeRecord),
		queue:    make(map[int64][]*QueueEntry),
	}
}

func (f *fakeRepository) seedUser(id int64, gender, orientation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &users.User{
		ID:          id,
		Username:    "user" + string(rune('a'+id%26)),
		DisplayName: "User",
		Age:         30,
		Gender:      gender,
		Orientation: orientation,
	}
}

func (f *fakeRepository) seedProfile(userID int64, genres, artists, songs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID] = &taste.Profile{
		UserID:  userID,
		Genres:  genres,
		Artists: artists,
		Songs:   songs,
	}
}

func (f *fakeRepository) GetUser(_ context.Context, id int64) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeRepository) GetTasteProfile(_ context.Context, userID int64) (*taste.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeRepository) GetCandidates(_ context.Context, excludedIDs []int64, limit int) ([]*Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	excluded := make(map[int64]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	candidates := make([]*Candidate, 0)
	for _, id := range ids {
		if len(candidates) >= limit {
			break
		}
		if _, skip := excluded[id]; skip {
			continue
		}
		profile, ok := f.profiles[id]
		if !ok || profile.IsEmpty() {
			continue
		}
		user := *f.users[id]
		copied := *profile
		candidates = append(candidates, &Candidate{User: &user, Profile: &copied})
	}

	return candidates, nil
}

func (f *fakeRepository) InsertSwipe(_ context.Context, record *SwipeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := [2]int64{record.FromUserID, record.ToUserID}
	if _, exists := f.swipes[key]; exists {
		return ErrAlreadySwiped
	}

	f.nextSwipeID++
	record.ID = f.nextSwipeID
	record.CreatedAt = time.Now()

	stored := *record
	f.swipes[key] = &stored
	return nil
}

func (f *fakeRepository) FindSwipe(_ context.Context, fromID, toID int64) (*SwipeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.swipes[[2]int64{fromID, toID}]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRepository) MarkMatched(_ context.Context, userA, userB int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if record, ok := f.swipes[[2]int64{userA, userB}]; ok {
		record.Matched = true
	}
	if record, ok := f.swipes[[2]int64{userB, userA}]; ok {
		record.Matched = true
	}
	return nil
}

func (f *fakeRepository) GetSwipedUserIDs(_ context.Context, ownerID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []int64
	for key := range f.swipes {
		if key[0] == ownerID {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

func (f *fakeRepository) GetMatches(_ context.Context, userID int64) ([]*MatchInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []*MatchInfo
	for key, record := range f.swipes {
		if key[0] != userID || !record.Liked {
			continue
		}
		reverse, ok := f.swipes[[2]int64{key[1], key[0]}]
		if !ok || !reverse.Liked {
			continue
		}

		other := f.users[key[1]]
		matchedAt := record.CreatedAt
		if reverse.CreatedAt.After(matchedAt) {
			matchedAt = reverse.CreatedAt
		}
		matches = append(matches, &MatchInfo{
			UserID:      other.ID,
			Username:    other.Username,
			DisplayName: other.DisplayName,
			Age:         other.Age,
			Gender:      other.Gender,
			MatchedAt:   matchedAt,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].MatchedAt.After(matches[j].MatchedAt)
	})
	return matches, nil
}

func (f *fakeRepository) GetSwipeStats(_ context.Context, userID int64) (*SwipeStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &SwipeStats{}
	for key, record := range f.swipes {
		if key[0] != userID {
			continue
		}
		stats.TotalSwipes++
		if record.Liked {
			stats.Likes++
			if reverse, ok := f.swipes[[2]int64{key[1], key[0]}]; ok && reverse.Liked {
				stats.Matches++
			}
		} else {
			stats.Passes++
		}
	}
	return stats, nil
}

func (f *fakeRepository) InsertQueueEntries(_ context.Context, entries []*QueueEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	inserted := 0
	for _, entry := range entries {
		if f.queuedLocked(entry.UserID, entry.SuggestedUserID) {
			continue
		}
		f.nextEntryID++
		stored := *entry
		stored.ID = f.nextEntryID
		stored.CreatedAt = time.Now()
		f.queue[entry.UserID] = append(f.queue[entry.UserID], &stored)
		inserted++
	}
	return inserted, nil
}

func (f *fakeRepository) queuedLocked(ownerID, suggestedID int64) bool {
	for _, entry := range f.queue[ownerID] {
		if entry.SuggestedUserID == suggestedID {
			return true
		}
	}
	return false
}

func (f *fakeRepository) DeleteQueueEntry(_ context.Context, ownerID, suggestedID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.queue[ownerID]
	for i, entry := range entries {
		if entry.SuggestedUserID == suggestedID {
			f.queue[ownerID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRepository) GetQueueEntries(_ context.Context, ownerID int64, limit int) ([]*Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := make([]*QueueEntry, len(f.queue[ownerID]))
	copy(entries, f.queue[ownerID])
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Position < entries[j].Position
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}

	suggestions := make([]*Suggestion, 0, len(entries))
	for _, entry := range entries {
		user := f.users[entry.SuggestedUserID]
		suggestions = append(suggestions, &Suggestion{
			UserID:      user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Age:         user.Age,
			Gender:      user.Gender,
			Score:       entry.Score,
		})
	}
	return suggestions, nil
}

func (f *fakeRepository) GetQueuedUserIDs(_ context.Context, ownerID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []int64
	for _, entry := range f.queue[ownerID] {
		ids = append(ids, entry.SuggestedUserID)
	}
	return ids, nil
}

func (f *fakeRepository) CountQueueEntries(_ context.Context, ownerID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue[ownerID]), nil
}

func (f *fakeRepository) MaxQueuePosition(_ context.Context, ownerID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var max int64
	for _, entry := range f.queue[ownerID] {
		if entry.Position > max {
			max = entry.Position
		}
	}
	return max, nil
}

func (f *fakeRepository) UpdateQueueScore(_ context.Context, ownerID, suggestedID int64, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, entry := range f.queue[ownerID] {
		if entry.SuggestedUserID == suggestedID {
			entry.Score = score
			break
		}
	}
	f.scoreUpdates = append(f.scoreUpdates, scoreUpdate{
		ownerID:     ownerID,
		suggestedID: suggestedID,
		score:       score,
	})
	return nil
}

func (f *fakeRepository) recordedUpdates() []scoreUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]scoreUpdate, len(f.scoreUpdates))
	copy(out, f.scoreUpdates)
	return out
}
