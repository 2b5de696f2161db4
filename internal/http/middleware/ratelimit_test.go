package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

func rateLimitedHandler(t *testing.T, rds *redis.Client, rps int, acct *model.Account) func() int {
	t.Helper()

	e := echo.New()
	mw := RateLimitMiddleware(RateLimitConfig{
		Redis:      rds,
		DefaultRPS: rps,
		Window:     time.Second,
	})

	return func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if acct != nil {
			c.Set("account", acct)
		}
		h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		require.NoError(t, h(c))
		return rec.Code
	}
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	do := rateLimitedHandler(t, rds, 3, &model.Account{ID: 1, Status: "active"})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do())
	}
}

func TestRateLimitRejectsOverBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	do := rateLimitedHandler(t, rds, 2, &model.Account{ID: 1, Status: "active"})

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestRateLimitWindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	do := rateLimitedHandler(t, rds, 1, &model.Account{ID: 1, Status: "active"})

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	// next second is a fresh window
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, http.StatusOK, do())
}

func TestRateLimitSeparatePerAccount(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	first := rateLimitedHandler(t, rds, 1, &model.Account{ID: 1, Status: "active"})
	second := rateLimitedHandler(t, rds, 1, &model.Account{ID: 2, Status: "active"})

	assert.Equal(t, http.StatusOK, first())
	assert.Equal(t, http.StatusTooManyRequests, first())
	assert.Equal(t, http.StatusOK, second(), "accounts have independent windows")
}

func TestRateLimitPassThroughWithoutAccount(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	do := rateLimitedHandler(t, rds, 1, nil)

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
}

func TestRateLimitDisabledWithZeroRPS(t *testing.T) {
	mr := miniredis.RunT(t)
	rds := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rds.Close()

	do := rateLimitedHandler(t, rds, 0, &model.Account{ID: 1, Status: "active"})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do())
	}
}
