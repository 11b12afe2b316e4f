package auth

// User is a staff account allowed to sign in to the dashboard.
type User struct {
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
}
