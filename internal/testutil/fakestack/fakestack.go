// Package fakestack serves the HTTP endpoints of the stack the harness talks
// to outside the browser, over TLS with a self-signed certificate:
//
//	GET  /admin/login/                       dashboard login page (readiness probe target)
//	POST /api/v1/:org/account/token/         RADIUS user token
//
// The router is gin with ginzap request logging and panic recovery, the same
// middleware stack as the real services expose.
package fakestack

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const loginPage = `<!DOCTYPE html><html><head><title>Log in | OpenWISP</title></head>
<body><form method="post"><input name="username"><input name="password" type="password"><input type="submit"></form></body></html>`

type user struct {
	password string
	active   bool
}

type Stack struct {
	server *httptest.Server

	mu            sync.Mutex
	organization  string
	users         map[string]user
	loginFailures int
	loginHits     int
	tokenHits     int
}

type Option func(*Stack)

func WithUser(username, password string, active bool) Option {
	return func(s *Stack) { s.users[username] = user{password: password, active: active} }
}

// WithLoginFailures answers the first n login page requests with 503.
func WithLoginFailures(n int) Option {
	return func(s *Stack) { s.loginFailures = n }
}

func WithOrganization(org string) Option {
	return func(s *Stack) { s.organization = org }
}

// New starts the stack. Callers must Close it.
func New(opts ...Option) *Stack {
	s := &Stack{
		organization: "default",
		users:        map[string]user{},
	}
	for _, o := range opts {
		o(s)
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	logger := zap.L().Named("fakestack")
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true), ginzap.RecoveryWithZap(logger, true))

	engine.GET("/admin/login/", s.login)
	engine.POST("/api/v1/:org/account/token/", s.token)

	s.server = httptest.NewTLSServer(engine)
	return s
}

func (s *Stack) URL() string {
	return s.server.URL
}

func (s *Stack) Close() {
	s.server.Close()
}

func (s *Stack) LoginHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginHits
}

func (s *Stack) TokenHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenHits
}

func (s *Stack) login(c *gin.Context) {
	s.mu.Lock()
	s.loginHits++
	failing := s.loginHits <= s.loginFailures
	s.mu.Unlock()

	if failing {
		c.String(http.StatusServiceUnavailable, "502 Bad Gateway")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
}

func (s *Stack) token(c *gin.Context) {
	s.mu.Lock()
	s.tokenHits++
	org := s.organization
	u, ok := s.users[c.PostForm("username")]
	s.mu.Unlock()

	if c.Param("org") != org {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	if !ok || u.password != c.PostForm("password") {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Unable to log in with provided credentials."}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":               fmt.Sprintf("%x", uuid.New()),
		"radius_user_token": uuid.NewString(),
		"is_active":         u.active,
		"is_verified":       false,
		"method":            "manual_registration",
		"username":          c.PostForm("username"),
		"password_expired":  false,
	})
}
