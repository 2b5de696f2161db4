package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
)

func TestBalanceHandlerCachesProviderResult(t *testing.T) {
	var hits int32
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"balance": 523, "status": "success"}`))
	}))
	defer provider.Close()

	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	client := mspace.NewClient(provider.URL, 2000)
	resolver := credential.NewResolver(credential.FromConfig(config.ProviderConfig{
		APIKey: "k", Username: "u",
	}))

	h := balanceHandler(client, resolver, rds, 1)
	e := echo.New()

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("account", &model.Account{ID: 1, Status: "active"})
		require.NoError(t, h(c))
		return rec
	}

	first := call()
	assert.Equal(t, http.StatusOK, first.Code)

	second := call()
	assert.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call served from cache")

	var body struct {
		Success bool `json:"success"`
		Result  struct {
			Balance int64  `json:"balance"`
			Status  string `json:"status"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(523), body.Result.Balance)
	assert.Equal(t, "success", body.Result.Status)
}

func TestBalanceHandlerWithoutCredentials(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	client := mspace.NewClient("http://127.0.0.1:0", 100)
	resolver := credential.NewResolver(credential.FromConfig(config.ProviderConfig{}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/balance", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("account", &model.Account{ID: 1, Status: "active"})

	require.NoError(t, balanceHandler(client, resolver, rds, 1)(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
	assert.Contains(t, body, "timestamp")
}
