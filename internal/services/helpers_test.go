package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"couples-backend/internal/models"
	"couples-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: testNow}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func createUser(t *testing.T, store repository.Store, username string) int64 {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "hash",
		DisplayName:  strings.ToUpper(username[:1]) + username[1:],
		CreatedAt:    testNow,
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user.ID
}

func createCouple(t *testing.T, store repository.Store, user1, user2 int64) *models.Couple {
	t.Helper()
	couple := models.NewCouple(user1, user2, testNow)
	require.NoError(t, store.Couples().Create(context.Background(), couple))
	return couple
}

// fakeImageStore records saved files in memory
type fakeImageStore struct {
	mu        sync.Mutex
	files     map[string]string
	deleted   []string
	saveErr   error
	deleteErr error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{files: make(map[string]string)}
}

func (f *fakeImageStore) Save(_ context.Context, name string, body io.Reader, _ int64, _ string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	url := "/uploads/" + name
	f.files[url] = string(data)
	return url, nil
}

func (f *fakeImageStore) Delete(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.files, url)
	return nil
}

func (f *fakeImageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}
