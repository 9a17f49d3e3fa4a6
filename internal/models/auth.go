package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the portal's auth service.
// ProfileID is the student or teacher record linked to the user.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	ProfileID string   `json:"profile_id,omitempty"`
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor returns the identifier recorded as grader or creator.
func (c *JWTClaims) Actor() string {
	if c == nil {
		return ""
	}
	if c.ProfileID != "" && c.Role == RoleTeacher {
		return c.ProfileID
	}
	return c.UserID
}
