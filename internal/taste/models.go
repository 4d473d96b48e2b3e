// internal/taste/models.go

package taste

import (
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Profile holds a user's music taste as three normalized token sets.
// Tokens are stored lowercase, trimmed, deduplicated and sorted so that
// scoring never has to normalize again.
type Profile struct {
	UserID    int64          `json:"user_id" db:"user_id"`
	Genres    pq.StringArray `json:"genres" db:"genres"`
	Artists   pq.StringArray `json:"artists" db:"artists"`
	Songs     pq.StringArray `json:"songs" db:"songs"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// IsEmpty reports whether the profile carries no tokens at all.
func (p *Profile) IsEmpty() bool {
	return len(p.Genres) == 0 && len(p.Artists) == 0 && len(p.Songs) == 0
}

// NormalizeTokens lowercases and trims every token, drops empties and
// duplicates, and returns the result sorted. Input order is irrelevant
// because the sets are compared, never iterated in order.
func NormalizeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
