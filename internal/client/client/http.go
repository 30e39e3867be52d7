package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/realmkeeper/internal/client/models"
	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/netx"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// Client is the realmkeeper API as seen by the CLI.
type Client interface {
	Register(ctx context.Context, username, email, password string) (*models.AuthResult, error)
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	AdminLogin(ctx context.Context, email, password string) (*models.AuthResult, error)
	VerifyToken(ctx context.Context, realm, token string) (*models.AuthResult, error)
	GetProfile(ctx context.Context, token, id string) (*models.Profile, error)
	UploadProfileImage(ctx context.Context, token, id, filename string, data []byte) (*models.Profile, error)
	ListUsers(ctx context.Context, adminToken string, limit, offset int) ([]models.Profile, error)
	CreateUser(ctx context.Context, adminToken, username, email, password string) (*models.Profile, error)
	UpdateUser(ctx context.Context, adminToken, id string, u models.ProfileUpdate) (*models.Profile, error)
	DeleteUser(ctx context.Context, adminToken, id string) error
	SweepOrphans(ctx context.Context, adminToken string, limit int) (*models.SweepReport, error)
	Ping(ctx context.Context) error
}

// envelope mirrors the server's response body.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    *models.Profile   `json:"user"`
	Users   []models.Profile  `json:"users"`
	Admin   *models.Admin     `json:"admin"`
	Data    json.RawMessage   `json:"data"`
	Token   string            `json:"token"`
	Errors  map[string]string `json:"errors"`
}

type HTTPClient struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := netx.ReadBody(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &env, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, payload any) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, token, body, "application/json")
}

func authResult(env *envelope) *models.AuthResult {
	return &models.AuthResult{Token: env.Token, User: env.User, Admin: env.Admin}
}

func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (*models.AuthResult, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": username, "email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return authResult(env), nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return authResult(env), nil
}

func (c *HTTPClient) AdminLogin(ctx context.Context, email, password string) (*models.AuthResult, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/auth/admin/login", "",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return authResult(env), nil
}

func (c *HTTPClient) VerifyToken(ctx context.Context, realm, token string) (*models.AuthResult, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/api/auth/verify-token?realm="+url.QueryEscape(realm), token, nil)
	if err != nil {
		return nil, err
	}
	res := authResult(env)
	res.Token = token
	return res, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, token, id string) (*models.Profile, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/api/user/"+url.PathEscape(id), token, nil)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) UploadProfileImage(ctx context.Context, token, id, filename string, data []byte) (*models.Profile, error) {
	body, contentType, err := netx.MultipartFile(common.ProfileImageFormField, filename, data)
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodPut, "/api/user/"+url.PathEscape(id)+"/image", token, body, contentType)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) ListUsers(ctx context.Context, adminToken string, limit, offset int) ([]models.Profile, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	env, err := c.doJSON(ctx, http.MethodGet, "/api/admin/users?"+q.Encode(), adminToken, nil)
	if err != nil {
		return nil, err
	}
	return env.Users, nil
}

func (c *HTTPClient) CreateUser(ctx context.Context, adminToken, username, email, password string) (*models.Profile, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/admin/users", adminToken,
		map[string]string{"username": username, "email": email, "password": password})
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) UpdateUser(ctx context.Context, adminToken, id string, u models.ProfileUpdate) (*models.Profile, error) {
	env, err := c.doJSON(ctx, http.MethodPut, "/api/admin/users/"+url.PathEscape(id), adminToken, u)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *HTTPClient) DeleteUser(ctx context.Context, adminToken, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/api/admin/users/"+url.PathEscape(id), adminToken, nil)
	return err
}

func (c *HTTPClient) SweepOrphans(ctx context.Context, adminToken string, limit int) (*models.SweepReport, error) {
	env, err := c.doJSON(ctx, http.MethodPost, "/api/admin/assets/sweep?limit="+strconv.Itoa(limit), adminToken, nil)
	if err != nil {
		return nil, err
	}

	var report models.SweepReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		return nil, fmt.Errorf("decode sweep report: %w", err)
	}
	return &report, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodGet, "/healthz", "", nil)
	return err
}
