// Package httpkit provides HTTP utilities including caller identity.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Identity represents the authenticated caller of an internal endpoint.
// Internal callers are services or operators, never end users.
type Identity interface {
	// Subject returns the caller name carried in the token's sub claim.
	Subject() string
	// Scopes returns the scopes granted to the caller.
	Scopes() []string
	// HasScope checks if the caller was granted a specific scope.
	HasScope(scope string) bool
	// IsAuthenticated returns true if the caller is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	subject       string
	scopes        []string
	authenticated bool
}

func (i *identity) Subject() string {
	return i.subject
}

func (i *identity) Scopes() []string {
	return i.scopes
}

func (i *identity) HasScope(scope string) bool {
	for _, s := range i.scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if caller info is not present.
func GetIdentity(c *gin.Context) Identity {
	subject, ok := c.Get(ContextSubjectKey)
	if !ok {
		return &identity{authenticated: false}
	}
	sub, ok := subject.(string)
	if !ok || sub == "" {
		return &identity{authenticated: false}
	}

	var scopeList []string
	if scopes, ok := c.Get(ContextScopesKey); ok {
		scopeList, _ = scopes.([]string)
	}

	return &identity{
		subject:       sub,
		scopes:        scopeList,
		authenticated: true,
	}
}

// RequireScope returns middleware that checks if the caller has the specified scope.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := GetIdentity(c)
		if !id.IsAuthenticated() || !id.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
