package users

import "time"

// OrientationBoth is the wildcard orientation: attracted to any gender.
const OrientationBoth = "both"

type User struct {
	ID          int64     `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Age         int       `json:"age" db:"age"`
	Gender      string    `json:"gender" db:"gender"`
	Orientation string    `json:"orientation" db:"orientation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Summary is the public view of a user shown to other users.
type Summary struct {
	ID          int64  `json:"id" db:"id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
	Age         int    `json:"age" db:"age"`
	Gender      string `json:"gender" db:"gender"`
}

// Summary returns the public view of the user.
func (u *User) Summary() *Summary {
	return &Summary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Age:         u.Age,
		Gender:      u.Gender,
	}
}
