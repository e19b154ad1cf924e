package models

// UserRole represents the two access levels of the roster.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// Valid reports whether the role is known.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an entry of the credentials store.
type User struct {
	Username     string   `yaml:"-" json:"username"`
	PasswordHash string   `yaml:"password" json:"-"`
	Role         UserRole `yaml:"role" json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
