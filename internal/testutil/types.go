package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
)

// TestService is a basic test service
type TestService struct {
	ID        string
	CreatedAt time.Time
	Data      string
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Data:      "test",
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() *TestLoggerImpl {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.logs))
	copy(result, l.logs)
	return result
}

// TestDatabase is a test database interface
type TestDatabase interface {
	Query(sql string) string
}

// TestDatabaseImpl implements TestDatabase. Its Name is left as the zero
// value when the container fills it from tags.
type TestDatabaseImpl struct {
	Name   string
	Logger TestLogger `inject:""`
}

func NewTestDatabase(logger TestLogger) *TestDatabaseImpl {
	return &TestDatabaseImpl{Name: "testdb", Logger: logger}
}

func (d *TestDatabaseImpl) Query(sql string) string {
	if d.Logger != nil {
		d.Logger.Log(sql)
	}
	return fmt.Sprintf("%s: %s", d.Name, sql)
}

// TestServiceWithDeps depends on a logger and a database.
type TestServiceWithDeps struct {
	Logger   TestLogger   `inject:""`
	Database TestDatabase `inject:""`
	Note     string
}

func NewTestServiceWithDeps(logger TestLogger, db TestDatabase) *TestServiceWithDeps {
	return &TestServiceWithDeps{Logger: logger, Database: db}
}

// TestServiceByName reaches its database through a forward reference.
type TestServiceByName struct {
	Database TestDatabase `inject:"TestDatabase"`
}

// CircularServiceA and CircularServiceB depend on each other.
type CircularServiceA struct {
	B *CircularServiceB `inject:""`
}

type CircularServiceB struct {
	A *CircularServiceA `inject:""`
}

// SelfDependent depends on itself.
type SelfDependent struct {
	Self *SelfDependent `inject:""`
}

// Counter counts constructor invocations.
type Counter struct {
	calls atomic.Int64
}

// Count returns the number of recorded calls.
func (c *Counter) Count() int64 {
	return c.calls.Load()
}

// TestServiceConstructor returns a constructor that records every call.
func (c *Counter) TestServiceConstructor() func() *TestService {
	return func() *TestService {
		c.calls.Add(1)
		return NewTestService()
	}
}

// TestServiceFactory returns a zero-argument factory that records every call.
func (c *Counter) TestServiceFactory() func() (*TestService, error) {
	return func() (*TestService, error) {
		c.calls.Add(1)
		return NewTestService(), nil
	}
}
