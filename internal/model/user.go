package model

// User is an authenticated account resolved by the auth middleware.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	APIToken string `json:"-"`
}
