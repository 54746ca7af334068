package models

import "github.com/golang-jwt/jwt/v5"

// Scope names a protected action unlocked by its own shared secret.
type Scope string

const (
	ScopePayments  Scope = "payments"
	ScopeDeletions Scope = "deletions"
	ScopeGrades    Scope = "grades"
)

// UnlockRequest exchanges the shared secret of an action for a scoped token.
type UnlockRequest struct {
	Action   Scope  `json:"action" validate:"required,oneof=payments deletions grades"`
	Password string `json:"password" validate:"required"`
	Operator string `json:"operator" validate:"omitempty,max=80"`
	IP       string `json:"-"`
}

// UnlockResponse carries the issued token.
type UnlockResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       Scope  `json:"scope"`
}

// JWTClaims represents the JWT payload for unlock tokens.
type JWTClaims struct {
	Operator string  `json:"operator,omitempty"`
	Scopes   []Scope `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims unlock scope.
func (c *JWTClaims) HasScope(scope Scope) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Actor is what write operations receive: who acts and whether the gate let them through.
type Actor struct {
	Name       string
	Authorized bool
}
