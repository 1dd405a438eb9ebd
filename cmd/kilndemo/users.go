package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errUserNotFound = errors.New("user not found")

// User is the demo domain record.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Connection is a stand-in for a database handle, built once at startup
// and registered as an instance.
type Connection struct {
	DSN string

	mu    sync.RWMutex
	users map[string]User
}

func newConnection(dsn string) *Connection {
	return &Connection{
		DSN: dsn,
		users: map[string]User{
			"1": {ID: "1", Name: "Ada"},
			"2": {ID: "2", Name: "Grace"},
		},
	}
}

func (c *Connection) get(id string) (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.users[id]
	return u, ok
}

// UserRepository loads users.
type UserRepository interface {
	FindByID(id string) (User, error)
}

// connectionUserRepository is filled by the container through its tags.
type connectionUserRepository struct {
	Conn *Connection `inject:""`
}

func (r *connectionUserRepository) FindByID(id string) (User, error) {
	u, ok := r.Conn.get(strings.TrimSpace(id))
	if !ok {
		return User{}, errUserNotFound
	}
	return u, nil
}

// UserService references its repository by service name.
type UserService struct {
	Repo   UserRepository `inject:"UserRepository"`
	Logger *zap.Logger    `inject:""`
}

func (s *UserService) Get(id string) (User, error) {
	u, err := s.Repo.FindByID(id)
	if err != nil {
		s.Logger.Debug("user lookup failed", zap.String("id", id), zap.Error(err))
		return User{}, err
	}
	return u, nil
}

// RequestNumber is produced by a factory on every resolution.
type RequestNumber uint64

// UserController is constructed per request.
type UserController struct {
	service *UserService
	number  RequestNumber
}

func NewUserController(service *UserService, number RequestNumber) *UserController {
	return &UserController{service: service, number: number}
}

func (c *UserController) GetByID(w http.ResponseWriter, r *http.Request) {
	u, err := c.service.Get(gochi.URLParam(r, "id"))
	if errors.Is(err, errUserNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error(), "request": c.number})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "request": c.number})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": u, "request": c.number})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
