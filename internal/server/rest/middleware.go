package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/logging"
	"github.com/dmitrijs2005/realmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/realmkeeper/internal/server/guard"
	"github.com/gofiber/fiber/v2"
)

// claimsKey holds the admitted auth.Claims in fiber Locals.
const claimsKey = "realmkeeper.claims"

func rejectRequest(c *fiber.Ctx, d guard.Decision) error {
	if d.Reason == guard.NoToken {
		return fail(c, http.StatusUnauthorized, msgNoToken, nil)
	}
	return fail(c, http.StatusForbidden, msgTokenRejected, nil)
}

// requireRealm admits only tokens issued for realm.
func requireRealm(g *guard.Guard, realm auth.Realm) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := g.Check(c.Get(common.AuthorizationHeaderName), realm)
		if !d.Admitted() {
			return rejectRequest(c, d)
		}
		c.Locals(claimsKey, d.Claims)
		return c.Next()
	}
}

// requireUserOrAdmin admits a user token, falling back to the admin realm
// when the token does not verify as a user token.
func requireUserOrAdmin(g *guard.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(common.AuthorizationHeaderName)

		d := g.Check(header, auth.RealmUser)
		if !d.Admitted() && d.Reason == guard.Invalid {
			if ad := g.Check(header, auth.RealmAdmin); ad.Admitted() {
				d = ad
			}
		}
		if !d.Admitted() {
			return rejectRequest(c, d)
		}

		c.Locals(claimsKey, d.Claims)
		return c.Next()
	}
}

func claimsFrom(c *fiber.Ctx) auth.Claims {
	claims, _ := c.Locals(claimsKey).(auth.Claims)
	return claims
}

// requestLogger writes one line per request through l. Tokens and bodies are
// never logged.
func requestLogger(l logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(http.StatusInternalServerError)
			}
		}

		l.Info(c.UserContext(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start).String(),
		)
		return nil
	}
}
