// internal/taste/source.go

package taste

import (
	"context"
	"fmt"
	"hash/fnv"
)

// ListeningData is the raw output of a music provider before
// normalization.
type ListeningData struct {
	Genres  []string
	Artists []string
	Songs   []string
}

// MusicSource fetches a user's listening history from a provider.
// Implementations must be safe for concurrent use.
type MusicSource interface {
	Fetch(ctx context.Context, userID int64) (*ListeningData, error)
}

// NewSource builds the music source named by provider. The set of valid
// names matches the MUSIC_PROVIDER config values.
func NewSource(provider string) (MusicSource, error) {
	switch provider {
	case "static":
		return NewStaticSource(), nil
	case "mock":
		return NewMockSource(), nil
	default:
		return nil, fmt.Errorf("unknown music provider: %s", provider)
	}
}

// StaticSource serves listening data from a built-in catalog. It stands
// in for a real streaming integration in development and tests: the
// same user always gets the same slice of the catalog.
type StaticSource struct{}

// NewStaticSource creates a catalog-backed music source.
func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

var catalogGenres = []string{
	"indie rock", "synth pop", "jazz", "hip hop", "techno",
	"folk", "metal", "r&b", "ambient", "classical",
}

var catalogArtists = []string{
	"the midnight", "khruangbin", "fka twigs", "bonobo", "men i trust",
	"tame impala", "little simz", "floating points", "big thief", "caribou",
	"nils frahm", "japanese breakfast", "jungle", "romy", "四季",
}

var catalogSongs = []string{
	"days of thunder", "so we won't forget", "cellophane", "kerala",
	"show me how", "the less i know the better", "venom", "lesalarm",
	"not", "odessa", "says", "be sweet", "busy earnin", "strong",
	"vaporwave sunset", "neon tide", "paper moon", "glass river",
}

// Fetch returns a deterministic pseudo-random selection for the user.
func (s *StaticSource) Fetch(_ context.Context, userID int64) (*ListeningData, error) {
	return &ListeningData{
		Genres:  pick(catalogGenres, userID, 3),
		Artists: pick(catalogArtists, userID, 5),
		Songs:   pick(catalogSongs, userID, 8),
	}, nil
}

// MockSource returns the same fixed listening data for every user.
// Useful when a demo needs guaranteed overlap between any two profiles.
type MockSource struct{}

// NewMockSource creates a fixed-output music source.
func NewMockSource() *MockSource {
	return &MockSource{}
}

func (s *MockSource) Fetch(_ context.Context, _ int64) (*ListeningData, error) {
	return &ListeningData{
		Genres:  []string{"indie rock", "synth pop", "jazz"},
		Artists: []string{"the midnight", "khruangbin", "bonobo"},
		Songs:   []string{"days of thunder", "kerala", "odessa"},
	}, nil
}

// pick selects count items from the catalog, seeded by the user ID so
// repeated syncs are stable.
func pick(catalog []string, userID int64, count int) []string {
	if count > len(catalog) {
		count = len(catalog)
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d", userID)
	start := int(h.Sum64() % uint64(len(catalog)))

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, catalog[(start+i)%len(catalog)])
	}
	return out
}
