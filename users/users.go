package users

import (
	"slices"
	"strings"

	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// Role is the coarse-grained authorization tag attached to a user by the server.
// It only drives client-side visibility decisions; the server remains authoritative.
type Role string

const (
	RoleAdmin    Role = "ADMIN"    // Full access, including user registration
	RoleManager  Role = "MANAGER"  // Team management views
	RoleEmployee Role = "EMPLOYEE" // Default role for registered users
)

var (
	// AllRoles lists the roles known to this client. Unknown roles from the server are kept verbatim.
	AllRoles = []Role{RoleAdmin, RoleManager, RoleEmployee}
	// ManagerRoles are the roles allowed into manager views.
	ManagerRoles = []Role{RoleManager, RoleAdmin}
	// AdminRoles are the roles allowed into admin views.
	AdminRoles = []Role{RoleAdmin}
)

// Known reports whether r is one of AllRoles.
func (r Role) Known() bool {
	return slices.Contains(AllRoles, r)
}

// User is an immutable snapshot of the authenticated user's profile as returned by the server.
// It is replaced wholesale on refresh and never patched field by field.
type User struct {
	ID         int64  `json:"id"`                   // Server-side user identifier
	Email      string `json:"email"`                // Login email
	FirstName  string `json:"firstName"`            // First name
	LastName   string `json:"lastName"`             // Last name
	EmployeeID string `json:"employeeId,omitempty"` // Optional HR employee identifier
	JobTitle   string `json:"jobTitle,omitempty"`   // Job title
	Department string `json:"department,omitempty"` // Department name
	Role       Role   `json:"role"`                 // Authorization role
	ManagerID  *int64 `json:"managerId,omitempty"`  // Line manager, if any
	IsActive   *bool  `json:"isActive,omitempty"`   // Account active flag
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u != nil && u.Role == RoleManager
}

// Active treats a missing flag as active, matching the server default.
func (u *User) Active() bool {
	if u.IsActive == nil {
		return true
	}
	return utils.Value(u.IsActive)
}

// HasRole checks for an exact role match. A nil user has no role.
func (u *User) HasRole(role Role) bool {
	return u != nil && u.Role == role
}

// HasAnyRole checks membership of the user's role in roles. A nil user matches nothing.
func (u *User) HasAnyRole(roles ...Role) bool {
	return u != nil && slices.Contains(roles, u.Role)
}

// Clone returns a deep copy so callers never share the session's snapshot.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ManagerID != nil {
		c.ManagerID = utils.Ptr(*u.ManagerID)
	}
	if u.IsActive != nil {
		c.IsActive = utils.Ptr(*u.IsActive)
	}
	return &c
}
