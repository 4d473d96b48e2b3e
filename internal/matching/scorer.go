// internal/matching/scorer.go
package matching

import (
	"math"

	"github.com/duetapp/duet-backend/internal/taste"
	"github.com/duetapp/duet-backend/internal/users"
)

// Component weights for the music-affinity score and the final blend.
// The music weights sum to 1.0, as do the blend weights.
const (
	genreWeight  = 0.30
	artistWeight = 0.40
	songWeight   = 0.30

	musicWeight      = 0.80
	preferenceWeight = 0.20
)

// Scorer computes the local compatibility score between two users. It
// does no I/O and is safe for concurrent use.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns a 0-100 compatibility score, rounded to the nearest
// whole number. Music affinity is the weighted Jaccard similarity of
// the genre, artist and song sets; the preference term is binary and
// requires mutual attraction. Profiles are stored normalized, so token
// comparison here is plain equality.
//
// A nil profile behaves as three empty sets. Two empty sets are a
// perfect component match; eligibility filtering keeps empty profiles
// out of real queues, so the artifact never ranks live suggestions.
func (s *Scorer) Score(userA, userB *users.User, profileA, profileB *taste.Profile) float64 {
	music := s.MusicScore(profileA, profileB)

	preference := 0.0
	if MutualAttraction(userA, userB) {
		preference = 100.0
	}

	return math.Round(music*musicWeight + preference*preferenceWeight)
}

// MusicScore returns the 0-100 weighted Jaccard similarity of the two
// profiles' taste sets.
func (s *Scorer) MusicScore(profileA, profileB *taste.Profile) float64 {
	var aGenres, aArtists, aSongs []string
	if profileA != nil {
		aGenres, aArtists, aSongs = profileA.Genres, profileA.Artists, profileA.Songs
	}

	var bGenres, bArtists, bSongs []string
	if profileB != nil {
		bGenres, bArtists, bSongs = profileB.Genres, profileB.Artists, profileB.Songs
	}

	similarity := jaccard(aGenres, bGenres)*genreWeight +
		jaccard(aArtists, bArtists)*artistWeight +
		jaccard(aSongs, bSongs)*songWeight

	return similarity * 100
}

// MutualAttraction reports whether both users' stated orientations
// accept the other's gender.
func MutualAttraction(a, b *users.User) bool {
	return attractedTo(a.Orientation, b.Gender) && attractedTo(b.Orientation, a.Gender)
}

func attractedTo(orientation, gender string) bool {
	return orientation == users.OrientationBoth || orientation == gender
}

// jaccard computes intersection over union of two token sets. Two empty
// sets are defined as identical (1.0); an empty set against a non-empty
// one shares nothing (0.0).
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	set := make(map[string]struct{}, len(a))
	for _, token := range a {
		set[token] = struct{}{}
	}

	intersection := 0
	for _, token := range b {
		if _, ok := set[token]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
