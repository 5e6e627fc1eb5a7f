package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"felicidade/internal/api/auth"
	"felicidade/internal/api/middleware"
	"felicidade/internal/config"
	"felicidade/internal/model"
	"felicidade/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_secret"

type mockUserStore struct {
	findByIDFunc    func(ctx context.Context, id uint) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	listFunc        func(ctx context.Context) ([]model.User, error)
	createFunc      func(ctx context.Context, user *model.User) error
	updateFunc      func(ctx context.Context, user *model.User) error
	createCalls     int
	updateCalls     int
}

func (m *mockUserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockUserStore) List(ctx context.Context) ([]model.User, error) {
	return m.listFunc(ctx)
}

func (m *mockUserStore) CreateWithAgenda(ctx context.Context, user *model.User) error {
	m.createCalls++
	return m.createFunc(ctx, user)
}

func (m *mockUserStore) Update(ctx context.Context, user *model.User) error {
	m.updateCalls++
	return m.updateFunc(ctx, user)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServer() *Server {
	metrics.Init()
	return &Server{
		cfg: &config.Config{
			Security: config.SecurityConfig{JWTSecret: testJWTSecret},
		},
		logger: testLogger(),
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, w.Body.String())
	}
	return body
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister_CreatesUserAndAgenda(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	store := &mockUserStore{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return nil, ErrNotFound
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			user.ID = 1
			return nil
		},
	}
	s.users = store

	r := gin.New()
	r.POST("/api/users", s.handleRegister)

	req := jsonRequest(http.MethodPost, "/api/users", gin.H{
		"name":     "user1",
		"email":    "user1@mail.com",
		"password": "12345",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if store.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", store.createCalls)
	}

	token := w.Header().Get(middleware.TokenHeader)
	if token == "" {
		t.Fatalf("expected x-auth-token header")
	}
	claims, err := auth.VerifyToken([]byte(testJWTSecret), token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.UserID != 1 || claims.IsAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	body := decodeBody(t, w)
	if body["_id"] != float64(1) || body["name"] != "user1" || body["email"] != "user1@mail.com" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["password"]; ok {
		t.Fatalf("password must not be serialized")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	store := &mockUserStore{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 7, Email: email}, nil
		},
	}
	s.users = store

	r := gin.New()
	r.POST("/api/users", s.handleRegister)

	req := jsonRequest(http.MethodPost, "/api/users", gin.H{
		"name":     "user1",
		"email":    "user1@mail.com",
		"password": "12345",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate email, got %d", w.Code)
	}
	if store.createCalls != 0 {
		t.Fatalf("duplicate registration must not create a second user")
	}
}

func TestRegister_InvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		payload gin.H
	}{
		{"short name", gin.H{"name": "u1", "email": "user1@mail.com", "password": "12345"}},
		{"missing email", gin.H{"name": "user1", "password": "12345"}},
		{"bad email shape", gin.H{"name": "user1", "email": "not-an-email", "password": "12345"}},
		{"short password", gin.H{"name": "user1", "email": "user1@mail.com", "password": "1234"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testServer()
			store := &mockUserStore{
				findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
					return nil, ErrNotFound
				},
				createFunc: func(ctx context.Context, user *model.User) error { return nil },
			}
			s.users = store

			r := gin.New()
			r.POST("/api/users", s.handleRegister)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/users", tc.payload))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if store.createCalls != 0 {
				t.Fatalf("invalid payload must not reach the store")
			}
		})
	}
}

func TestCurrentUser_ExcludesPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	s.users = &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
			return &model.User{ID: id, Name: "user1", Email: "user1@mail.com", Password: "$2a$10$hash"}, nil
		},
	}

	r := gin.New()
	r.GET("/api/users/me", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uint(3))
		s.handleCurrentUser(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["_id"] != float64(3) || body["name"] != "user1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["password"]; ok {
		t.Fatalf("password must not be serialized")
	}
}

func TestGetUser_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	s.users = &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
			return nil, ErrNotFound
		},
	}

	r := gin.New()
	r.GET("/api/users/:id", s.handleGetUser)

	for _, target := range []string{"/api/users/99", "/api/users/abc"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", target, w.Code)
		}
	}
}

func TestUpdateUser_RehashesPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	var saved *model.User
	s.users = &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
			return &model.User{ID: id, Name: "user1", Email: "user1@mail.com", Password: "old-hash"}, nil
		},
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return nil, ErrNotFound
		},
		updateFunc: func(ctx context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}

	r := gin.New()
	r.PUT("/api/users/:id", s.handleUpdateUser)

	req := jsonRequest(http.MethodPut, "/api/users/5", gin.H{
		"name":     "user1 renamed",
		"email":    "user1@mail.com",
		"password": "new-password",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if saved == nil {
		t.Fatalf("expected update call")
	}
	if saved.Name != "user1 renamed" {
		t.Fatalf("name not applied: %q", saved.Name)
	}
	if saved.Password == "new-password" || saved.Password == "old-hash" {
		t.Fatalf("password must be rehashed, got %q", saved.Password)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("new-password")); err != nil {
		t.Fatalf("stored hash does not match new password: %v", err)
	}
}

func TestUpdateUser_EmailTakenByOther(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	store := &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uint) (*model.User, error) {
			return &model.User{ID: id, Email: "user1@mail.com"}, nil
		},
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: 42, Email: email}, nil
		},
		updateFunc: func(ctx context.Context, user *model.User) error { return nil },
	}
	s.users = store

	r := gin.New()
	r.PUT("/api/users/:id", s.handleUpdateUser)

	req := jsonRequest(http.MethodPut, "/api/users/5", gin.H{
		"name":     "user1",
		"email":    "taken@mail.com",
		"password": "12345",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.updateCalls != 0 {
		t.Fatalf("update must not run when the email belongs to another user")
	}
}
