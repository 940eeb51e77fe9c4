package domain

// User represents an account on this server.
type User struct {
	Record
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsRoot       bool   `json:"is_root"`
}
