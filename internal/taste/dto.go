// internal/taste/dto.go

package taste

// UpdateProfileRequest replaces the caller's taste profile wholesale.
// Lists are normalized server-side, so duplicates and casing differences
// in the payload are harmless.
type UpdateProfileRequest struct {
	Genres  []string `json:"genres" validate:"max=100,dive,min=1,max=100"`
	Artists []string `json:"artists" validate:"max=200,dive,min=1,max=200"`
	Songs   []string `json:"songs" validate:"max=500,dive,min=1,max=300"`
}
