package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/annavaram/internal/services"
)

const identityContextKey = "currentIdentity"

// AuthMiddleware authenticates the bearer token against the session store and
// loads the caller's identity into context.
func AuthMiddleware(authenticator *services.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := authenticator.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		c.Locals(identityContextKey, identity)
		return c.Next()
	}
}

// OptionalAuth loads the identity when a valid bearer token is present and
// continues anonymously otherwise.
func OptionalAuth(authenticator *services.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		if identity, err := authenticator.Authenticate(c.UserContext(), header); err == nil {
			c.Locals(identityContextKey, identity)
		}
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. Must run after AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := GetIdentity(c)
		if !ok {
			return services.ErrMissingToken
		}
		if err := services.RequireAdmin(identity); err != nil {
			return err
		}
		return c.Next()
	}
}

// GetIdentity extracts the authenticated identity from context.
func GetIdentity(c *fiber.Ctx) (*services.Identity, bool) {
	identity, ok := c.Locals(identityContextKey).(*services.Identity)
	return identity, ok && identity != nil
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	identity, ok := GetIdentity(c)
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}
