package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"felicidade/internal/model"

	"github.com/gin-gonic/gin"
)

type mockHabitStore struct {
	listFunc     func(ctx context.Context) ([]model.Habit, error)
	findByIDFunc func(ctx context.Context, id uint) (*model.Habit, error)
	createFunc   func(ctx context.Context, habit *model.Habit) error
	createCalls  int
}

func (m *mockHabitStore) List(ctx context.Context) ([]model.Habit, error) {
	return m.listFunc(ctx)
}

func (m *mockHabitStore) FindByID(ctx context.Context, id uint) (*model.Habit, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockHabitStore) Create(ctx context.Context, habit *model.Habit) error {
	m.createCalls++
	return m.createFunc(ctx, habit)
}

func TestCreateHabit_AllFieldsRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	store := &mockHabitStore{
		createFunc: func(ctx context.Context, habit *model.Habit) error { return nil },
	}
	s.habits = store

	r := gin.New()
	r.POST("/api/habits", s.handleCreateHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/habits", gin.H{
		"title":   "meditar",
		"content": "10 minutos por dia",
	}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when category is missing, got %d", w.Code)
	}
	if store.createCalls != 0 {
		t.Fatalf("invalid habit must not reach the store")
	}
}

func TestCreateHabit_OK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	s.habits = &mockHabitStore{
		createFunc: func(ctx context.Context, habit *model.Habit) error {
			habit.ID = 1
			return nil
		},
	}

	r := gin.New()
	r.POST("/api/habits", s.handleCreateHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(http.MethodPost, "/api/habits", gin.H{
		"title":    "meditar",
		"content":  "10 minutos por dia",
		"category": "bem-estar",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["_id"] != float64(1) || body["category"] != "bem-estar" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetHabit_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := testServer()

	s.habits = &mockHabitStore{
		findByIDFunc: func(ctx context.Context, id uint) (*model.Habit, error) {
			return nil, ErrNotFound
		},
	}

	r := gin.New()
	r.GET("/api/habits/:id", s.handleGetHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/habits/42", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
