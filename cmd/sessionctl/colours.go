package main

import "github.com/jrsteele09/go-auth-client/users"

const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m" // Reset to default color
)

var roleColours = map[users.Role]string{
	users.RoleAdmin:    Red,
	users.RoleManager:  Blue,
	users.RoleEmployee: Cyan,
}

// roleLabel renders a role in its colour. Unknown roles are gray.
func roleLabel(r users.Role) string {
	colour, ok := roleColours[r]
	if !ok {
		colour = Gray
	}
	return colour + string(r) + ResetColor
}
