package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"couples-backend/internal/repository"
	"couples-backend/internal/services"
	"couples-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type channelDeliverer chan services.Notification

func (c channelDeliverer) Deliver(_ context.Context, n services.Notification) error {
	c <- n
	return nil
}

type testServer struct {
	t         *testing.T
	handler   http.Handler
	delivered channelDeliverer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	tokens := services.NewTokenManager("handler-secret", time.Hour, 24*time.Hour)

	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir, "/uploads/")
	require.NoError(t, err)

	delivered := make(channelDeliverer, 16)
	relay := services.NewRelay(delivered, 16)
	t.Cleanup(relay.Close)

	handler := NewRouter(RouterDeps{
		Tokens:              tokens,
		UserService:         services.NewUserService(store, tokens, bcrypt.MinCost),
		PairingService:      services.NewPairingService(store, 10*time.Minute),
		CoupleService:       services.NewCoupleService(store),
		QuickMessageService: services.NewQuickMessageService(store, 2),
		SlideshowService:    services.NewSlideshowService(store, images, 5),
		NotificationService: services.NewNotificationService(store, relay),
		MaxUploadBytes:      1 << 20,
		UploadDir:           images.Dir(),
		UploadPrefix:        images.Prefix(),
	})

	return &testServer{t: t, handler: handler, delivered: delivered}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(token, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/slideshow/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(username string) services.AuthResponse {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": "secret1",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp services.AuthResponse
	decode(s.t, rec, &resp)
	return resp
}

// pair registers two users and pairs them
func (s *testServer) pair() (services.AuthResponse, services.AuthResponse) {
	s.t.Helper()

	alice := s.register("alice")
	bob := s.register("bob")

	rec := s.do(http.MethodPost, "/pair/code", alice.AccessToken, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var code services.PairingCodeResponse
	decode(s.t, rec, &code)

	rec = s.do(http.MethodPost, "/pair/confirm", bob.AccessToken, map[string]string{"code": code.Code})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	return alice, bob
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	decode(t, rec, &resp)
	return resp.Kind
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth_RegisterLoginRefresh(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	assert.Equal(t, "alice", alice.DisplayName)

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "alice", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USERNAME_TAKEN", errorKind(t, rec))

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorKind(t, rec))

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": alice.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed services.AuthResponse
	decode(t, rec, &refreshed)
	assert.Equal(t, alice.UserID, refreshed.UserID)
}

func TestAuth_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "al", "password": "secret1"}},
		{"short password", map[string]string{"username": "alice", "password": "123"}},
		{"bad birth date", map[string]string{"username": "alice", "password": "secret1", "dateOfBirth": "01/06/1995"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_FAILURE", errorKind(t, rec))
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/users/me", "/couple/status", "/quick-messages", "/slideshow"} {
		rec := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "AUTH_FAILURE", errorKind(t, rec))
	}

	alice := s.register("alice")
	rec := s.do(http.MethodGet, "/users/me", alice.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersMe(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	rec := s.do(http.MethodPatch, "/users/me", alice.AccessToken, map[string]string{"displayName": "Ally"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/users/me", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile services.Profile
	decode(t, rec, &profile)
	assert.Equal(t, "Ally", profile.DisplayName)
	assert.Equal(t, "alice", profile.Username)
}

func TestPairingFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	rec := s.do(http.MethodGet, "/couple/status", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status services.CoupleStatus
	decode(t, rec, &status)
	assert.False(t, status.IsPaired)

	rec = s.do(http.MethodGet, "/couple/timer", alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_PAIRED", errorKind(t, rec))

	rec = s.do(http.MethodPost, "/pair/code", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var code services.PairingCodeResponse
	decode(t, rec, &code)
	assert.Len(t, code.Code, 6)
	assert.Equal(t, int64(600), code.ExpiresInSeconds)

	rec = s.do(http.MethodPost, "/pair/confirm", alice.AccessToken, map[string]string{"code": code.Code})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SELF_PAIRING", errorKind(t, rec))

	rec = s.do(http.MethodPost, "/pair/confirm", bob.AccessToken, map[string]string{"code": "12ab56"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILURE", errorKind(t, rec))

	rec = s.do(http.MethodPost, "/pair/confirm", bob.AccessToken, map[string]string{"code": code.Code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/couple/status", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &status)
	assert.True(t, status.IsPaired)
	require.NotNil(t, status.PartnerID)
	assert.Equal(t, alice.UserID, *status.PartnerID)
	require.NotNil(t, status.PartnerDisplayName)
	assert.Equal(t, "alice", *status.PartnerDisplayName)

	rec = s.do(http.MethodGet, "/couple/timer", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var timer services.CoupleTimer
	decode(t, rec, &timer)
	assert.GreaterOrEqual(t, timer.TotalSeconds, int64(0))

	rec = s.do(http.MethodPost, "/pair/code", bob.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_PAIRED", errorKind(t, rec))

	carol := s.register("carol")
	rec = s.do(http.MethodPost, "/pair/confirm", carol.AccessToken, map[string]string{"code": code.Code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_OR_EXPIRED_CODE", errorKind(t, rec))
}

func TestQuickMessages(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.pair()

	rec := s.do(http.MethodPost, "/quick-messages", alice.AccessToken, map[string]string{"content": "Miss you"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &first)

	rec = s.do(http.MethodPost, "/quick-messages", bob.AccessToken, map[string]string{"content": "On my way"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/quick-messages", bob.AccessToken, map[string]string{"content": "One too many"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "LIMIT_REACHED", errorKind(t, rec))

	long := string(bytes.Repeat([]byte("x"), 51))
	rec = s.do(http.MethodPost, "/quick-messages", bob.AccessToken, map[string]string{"content": long})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/quick-messages", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	decode(t, rec, &list)
	assert.Len(t, list, 2)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/quick-messages/%d", first.ID), bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/quick-messages/%d", first.ID), bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorKind(t, rec))

	rec = s.do(http.MethodDelete, "/quick-messages/abc", bob.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuickMessages_NotPaired(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	rec := s.do(http.MethodGet, "/quick-messages", alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_PAIRED", errorKind(t, rec))
}

func TestSlideshow(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.pair()

	var ids []int64
	for _, name := range []string{"a.jpg", "b.png", "c.jpg"} {
		rec := s.upload(alice.AccessToken, name, []byte("image "+name))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var img struct {
			ID         int64  `json:"id"`
			ImageURL   string `json:"imageUrl"`
			OrderIndex int    `json:"orderIndex"`
		}
		decode(t, rec, &img)
		assert.Equal(t, len(ids), img.OrderIndex)
		assert.Contains(t, img.ImageURL, "/uploads/")
		ids = append(ids, img.ID)

		served := s.do(http.MethodGet, img.ImageURL, "", nil)
		assert.Equal(t, http.StatusOK, served.Code)
		assert.Equal(t, "image "+name, served.Body.String())
	}

	rec := s.do(http.MethodPut, "/slideshow/reorder", bob.AccessToken, map[string][]int64{
		"imageIds": {ids[2], ids[0], ids[1]},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/slideshow/reorder", bob.AccessToken, map[string][]int64{
		"imageIds": {ids[2], ids[0]},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_IMAGE_SET", errorKind(t, rec))

	rec = s.do(http.MethodDelete, fmt.Sprintf("/slideshow/%d", ids[0]), bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/slideshow", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var images []struct {
		ID         int64 `json:"id"`
		OrderIndex int   `json:"orderIndex"`
	}
	decode(t, rec, &images)
	require.Len(t, images, 2)
	assert.Equal(t, ids[2], images[0].ID)
	assert.Equal(t, 0, images[0].OrderIndex)
	assert.Equal(t, ids[1], images[1].ID)
	assert.Equal(t, 1, images[1].OrderIndex)
}

func TestSlideshow_UploadErrors(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.pair()

	rec := s.do(http.MethodPost, "/slideshow/upload", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.upload(alice.AccessToken, "huge.jpg", bytes.Repeat([]byte{1}, 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	carol := s.register("carol")
	rec = s.upload(carol.AccessToken, "a.jpg", []byte("x"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_PAIRED", errorKind(t, rec))
}

func TestNotify(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.pair()

	rec := s.do(http.MethodPost, "/notify/custom", alice.AccessToken, map[string]string{"message": "Dinner at 8?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	select {
	case n := <-s.delivered:
		assert.Equal(t, bob.UserID, n.ToUserID)
		assert.Equal(t, alice.UserID, n.FromUserID)
		assert.Equal(t, services.NotificationCustom, n.Kind)
		assert.Equal(t, "Dinner at 8?", n.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	rec = s.do(http.MethodPost, "/notify/quick", alice.AccessToken, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	carol := s.register("carol")
	rec = s.do(http.MethodPost, "/notify/quick", carol.AccessToken, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSlideshow_ReorderEmptyList(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.pair()
	empty := map[string][]int64{"imageIds": {}}

	rec := s.do(http.MethodPut, "/slideshow/reorder", alice.AccessToken, empty)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.upload(bob.AccessToken, "a.jpg", []byte("x"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/slideshow/reorder", alice.AccessToken, empty)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_IMAGE_SET", errorKind(t, rec))

	carol := s.register("carol")
	rec = s.do(http.MethodPut, "/slideshow/reorder", carol.AccessToken, empty)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_PAIRED", errorKind(t, rec))

	rec = s.do(http.MethodPut, "/slideshow/reorder", alice.AccessToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILURE", errorKind(t, rec))
}
