package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/poonnyworld/pbz-bots/internal/handler/mw"
	"github.com/poonnyworld/pbz-bots/internal/repository"
	"github.com/poonnyworld/pbz-bots/internal/usecase"
)

type testServer struct {
	srv  *httptest.Server
	svc  *usecase.Service
	logs *syncBuffer
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Strong@Pass123"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := usecase.NewService(repository.NewMemoryRepo(), usecase.DefaultRules())
	logs := &syncBuffer{}
	h := NewHandler(svc, mw.NewAuth([]byte("test-secret")), Credentials{Username: "admin", PasswordHash: hash}, zerolog.New(logs))
	r := chi.NewRouter()
	h.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, svc: svc, logs: logs}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "Strong@Pass123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lr loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lr))
	require.NotEmpty(t, lr.Token)
	return lr.Token
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := ts.login(t)
	resp = ts.do(t, http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestItemsAndPoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)
	ctx := context.Background()

	stock := 1
	resp := ts.do(t, http.MethodPost, "/api/items", token, itemRequest{Name: "Nitro", Cost: 60, Stock: &stock})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created itemResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.IsActive)
	assert.Equal(t, 1, created.Stock)

	resp = ts.do(t, http.MethodPost, "/api/items", token, itemRequest{Name: "Free", Cost: 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err := ts.svc.Register(ctx, "u1", "Ziyo")
	require.NoError(t, err)

	resp = ts.do(t, http.MethodPut, "/api/users/u1/points", token, map[string]int64{"points": 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = ts.do(t, http.MethodPut, "/api/users/u1/points", token, map[string]int64{"points": -1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = ts.do(t, http.MethodPut, "/api/users/ghost/points", token, map[string]int64{"points": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	res, err := ts.svc.Purchase(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.NewBalance)

	resp = ts.do(t, http.MethodGet, "/api/redemptions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reds []redemptionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reds))
	require.Len(t, reds, 1)
	assert.Equal(t, "u1", reds[0].UserID)
	assert.Equal(t, int64(60), reds[0].Cost)

	resp = ts.do(t, http.MethodGet, "/api/users", token, nil)
	var users []userResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 1)
	assert.Equal(t, int64(40), users[0].Points)
	assert.Equal(t, "Ziyo", users[0].Username)

	restock := 5
	resp = ts.do(t, http.MethodPut, "/api/items/999", token, itemRequest{Name: "Nope", Cost: 5, Stock: &restock})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = ts.do(t, http.MethodPut, "/api/items/abc", token, itemRequest{Name: "Nope", Cost: 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = ts.do(t, http.MethodPut, "/api/items/"+strconv.FormatInt(created.ID, 10), token, itemRequest{Name: "Nitro", Cost: 80, Stock: &restock})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/items", token, nil)
	var items []itemResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Stock)
	assert.Equal(t, int64(80), items[0].Cost)
}

func TestUpdateItemKeepsOmittedFields(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)

	stock, active := 3, false
	resp := ts.do(t, http.MethodPost, "/api/items", token, itemRequest{Name: "Hoodie", Cost: 300, Stock: &stock, IsActive: &active})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created itemResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	path := "/api/items/" + strconv.FormatInt(created.ID, 10)
	resp = ts.do(t, http.MethodPut, path, token, map[string]interface{}{"name": "x", "cost": 12})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated itemResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "x", updated.Name)
	assert.Equal(t, int64(12), updated.Cost)
	assert.Equal(t, 3, updated.Stock)
	assert.False(t, updated.IsActive)

	items, err := ts.svc.ListShopItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "a retired item stays off the shop")

	resp = ts.do(t, http.MethodPut, path, token, map[string]interface{}{"stock": -2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Contains(t, ts.logs.String(), `"admin":"admin"`)
	assert.Contains(t, ts.logs.String(), `"message":"item edited"`)
}

func TestListUsersReportsLastDailyOnlyAfterClaim(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t)
	ctx := context.Background()
	_, err := ts.svc.Register(ctx, "u1", "Ziyo")
	require.NoError(t, err)

	listUsers := func() []userResponse {
		resp := ts.do(t, http.MethodGet, "/api/users", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var users []userResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
		require.Len(t, users, 1)
		return users
	}

	assert.Nil(t, listUsers()[0].LastDaily)

	_, err = ts.svc.ClaimDaily(ctx, "u1")
	require.NoError(t, err)
	users := listUsers()
	require.NotNil(t, users[0].LastDaily)
	assert.WithinDuration(t, time.Now(), *users[0].LastDaily, time.Minute)
}
