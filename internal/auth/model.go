package auth

import "time"

// User is an operator allowed to open the board when authentication is on.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	// Assignee is the identity written into assignedTo for this operator,
	// e.g. "user-1". Empty means the username.
	Assignee  string    `json:"assignee,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) AssigneeID() string {
	if u.Assignee != "" {
		return u.Assignee
	}
	return u.Username
}
