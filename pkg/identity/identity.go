// Package identity resolves the user behind an HTTP request. Authentication
// itself happens upstream; the provider only reads what the gateway forwards.
package identity

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
)

const (
	DefaultHeader = "X-User-ID"
	EmailHeader   = "X-User-Email"
)

var ErrUnauthorized = errors.New("no authenticated user")

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type Provider interface {
	CurrentUser(c fiber.Ctx) (*User, error)
}

// HeaderProvider trusts a user id header set by an authenticating proxy.
type HeaderProvider struct {
	header string
}

// NewHeaderProvider reads header, or DefaultHeader when empty.
func NewHeaderProvider(header string) *HeaderProvider {
	if header == "" {
		header = DefaultHeader
	}

	return &HeaderProvider{header: header}
}

func (p *HeaderProvider) CurrentUser(c fiber.Ctx) (*User, error) {
	id := strings.TrimSpace(c.Get(p.header))
	if id == "" {
		return nil, ErrUnauthorized
	}

	return &User{ID: id, Email: strings.TrimSpace(c.Get(EmailHeader))}, nil
}

type localsKey struct{}

// Middleware stores the current user on the request, or hands the provider
// error to onError.
func Middleware(provider Provider, onError func(c fiber.Ctx, err error) error) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, err := provider.CurrentUser(c)
		if err != nil {
			return onError(c, err)
		}

		c.Locals(localsKey{}, user)

		return c.Next()
	}
}

// FromContext returns the user stored by Middleware.
func FromContext(c fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(localsKey{}).(*User)

	return user, ok && user != nil
}
