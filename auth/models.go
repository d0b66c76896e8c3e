package auth

import "time"

// Role is the access tier controlling which mutators a caller may invoke.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

// roleLevels orders roles: admin > librarian > member.
var roleLevels = map[Role]int{
	RoleMember:    1,
	RoleLibrarian: 2,
	RoleAdmin:     3,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether r grants at least the access of min.
func (r Role) AtLeast(min Role) bool {
	return roleLevels[r] >= roleLevels[min]
}

// Account is a registered user. Username is unique case-insensitively and
// immutable after creation; accounts are never deleted.
type Account struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the single active authenticated context. It is a snapshot of
// the account at login time, not a live reference: role changes to the
// account after login do not affect it.
type Session struct {
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	LoggedAt time.Time `json:"loggedAt"`
}
