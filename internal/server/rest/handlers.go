package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/server/auth"
	"github.com/dmitrijs2005/realmkeeper/internal/server/guard"
	"github.com/dmitrijs2005/realmkeeper/internal/server/models"
	"github.com/dmitrijs2005/realmkeeper/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// defaultSweepLimit caps one sweep when the caller gives no limit.
const defaultSweepLimit = 100

// defaultListLimit is the page size of the user listing.
const defaultListLimit = 50

// IdentityService is satisfied by *services.IdentityService.
type IdentityService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.UserSession, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.UserSession, error)
	AdminLogin(ctx context.Context, req services.LoginRequest) (*services.AdminSession, error)
	VerifyToken(ctx context.Context, token string, realm auth.Realm) (auth.Claims, error)
	GetIdentity(ctx context.Context, id string) (*models.Identity, error)
	ListIdentities(ctx context.Context, limit, offset int) ([]*models.Identity, error)
	CreateIdentity(ctx context.Context, req services.RegisterRequest) (*models.Identity, error)
	UpdateIdentity(ctx context.Context, id string, req services.UpdateRequest) (*models.Identity, error)
}

// AssetService is satisfied by *services.AssetService.
type AssetService interface {
	ReplaceProfileAsset(ctx context.Context, identityID string, data []byte) (*models.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	SweepOrphans(ctx context.Context, limit int) (*services.SweepReport, error)
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.health)

	api := s.app.Group("/api")

	a := api.Group("/auth")
	a.Post("/register", s.register)
	a.Post("/login", s.login)
	a.Post("/admin/login", s.adminLogin)
	a.Get("/verify-token", s.verifyToken)

	u := api.Group("/user", requireUserOrAdmin(s.guard))
	u.Get("/:id", s.getIdentity)
	u.Put("/:id/image", s.replaceImage)

	adm := api.Group("/admin", requireRealm(s.guard, auth.RealmAdmin))
	adm.Get("/users", s.listIdentities)
	adm.Post("/users", s.createIdentity)
	adm.Put("/users/:id", s.updateIdentity)
	adm.Delete("/users/:id", s.deleteIdentity)
	adm.Post("/assets/sweep", s.sweepOrphans)
}

func (s *Server) health(c *fiber.Ctx) error {
	return ok(c, http.StatusOK, envelope{Message: "ok"})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidRequest, nil)
	}

	sess, err := s.identities.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	return ok(c, http.StatusCreated, envelope{
		Message: msgRegistered,
		User:    publicIdentity(sess.Identity),
		Token:   sess.Token,
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidRequest, nil)
	}

	sess, err := s.identities.Login(c.UserContext(), req)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	return ok(c, http.StatusOK, envelope{
		Message: msgLoggedIn,
		User:    publicIdentity(sess.Identity),
		Token:   sess.Token,
	})
}

func (s *Server) adminLogin(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidRequest, nil)
	}

	sess, err := s.identities.AdminLogin(c.UserContext(), req)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	admin := sess.Admin
	return ok(c, http.StatusOK, envelope{Message: msgAdminLoggedIn, Admin: &admin, Token: sess.Token})
}

func (s *Server) verifyToken(c *fiber.Ctx) error {
	realm, err := auth.ParseRealm(c.Query("realm"))
	if err != nil {
		return respondError(c, s.logger, err)
	}

	token, _ := guard.BearerToken(c.Get(common.AuthorizationHeaderName))

	claims, err := s.identities.VerifyToken(c.UserContext(), token, realm)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	body := envelope{Message: msgTokenValid}
	switch cl := claims.(type) {
	case auth.UserClaims:
		identity, err := s.identities.GetIdentity(c.UserContext(), cl.UserID)
		if err != nil {
			return respondError(c, s.logger, err)
		}
		body.User = publicIdentity(identity)
	case auth.AdminClaims:
		body.Admin = &models.PublicAdmin{Email: cl.Email}
	}

	return ok(c, http.StatusOK, body)
}

func (s *Server) getIdentity(c *fiber.Ctx) error {
	id := c.Params("id")
	if !guard.CanMutate(claimsFrom(c), id) {
		return fail(c, http.StatusForbidden, msgForbidden, nil)
	}

	identity, err := s.identities.GetIdentity(c.UserContext(), id)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	return ok(c, http.StatusOK, envelope{User: publicIdentity(identity)})
}

func (s *Server) replaceImage(c *fiber.Ctx) error {
	id := c.Params("id")
	if !guard.CanMutate(claimsFrom(c), id) {
		return fail(c, http.StatusForbidden, msgForbidden, nil)
	}

	data, err := readFormFile(c, common.ProfileImageFormField)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	identity, err := s.assets.ReplaceProfileAsset(c.UserContext(), id, data)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	return ok(c, http.StatusOK, envelope{Message: msgUserUpdated, User: publicIdentity(identity)})
}

// readFormFile returns the bytes of the multipart field. An absent field
// yields nil data so the service can resolve the identity before it rejects
// the missing image.
func readFormFile(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open form file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read form file: %w", err)
	}
	return data, nil
}

func (s *Server) listIdentities(c *fiber.Ctx) error {
	list, err := s.identities.ListIdentities(c.UserContext(), c.QueryInt("limit", defaultListLimit), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, s.logger, err)
	}
	return ok(c, http.StatusOK, envelope{Users: publicIdentities(list)})
}

func (s *Server) createIdentity(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidRequest, nil)
	}

	identity, err := s.identities.CreateIdentity(c.UserContext(), req)
	if err != nil {
		return respondError(c, s.logger, err)
	}
	return ok(c, http.StatusCreated, envelope{Message: msgUserCreated, User: publicIdentity(identity)})
}

func (s *Server) updateIdentity(c *fiber.Ctx) error {
	var req services.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidRequest, nil)
	}

	identity, err := s.identities.UpdateIdentity(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, s.logger, err)
	}
	return ok(c, http.StatusOK, envelope{Message: msgUserUpdated, User: publicIdentity(identity)})
}

func (s *Server) deleteIdentity(c *fiber.Ctx) error {
	if err := s.assets.DeleteIdentity(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, s.logger, err)
	}
	return ok(c, http.StatusOK, envelope{Message: msgUserDeleted})
}

func (s *Server) sweepOrphans(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultSweepLimit)
	if limit <= 0 {
		return fail(c, http.StatusBadRequest, msgInvalidRequest, map[string]string{"limit": "must be positive"})
	}

	report, err := s.assets.SweepOrphans(c.UserContext(), limit)
	if err != nil {
		return respondError(c, s.logger, err)
	}

	return ok(c, http.StatusOK, envelope{Message: msgSweepFinished, Data: report})
}
