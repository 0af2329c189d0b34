package models

// User represents a registered account as returned by the directory API.
// Identity key is ID; a user record is immutable once fetched.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}
