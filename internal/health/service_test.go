package health

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"herdbook-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okPinger struct{}

func (okPinger) Ping() error { return nil }

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCollectHealth_ReadsTrafficCounters(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Set(middleware.KeyReqTotal, "40")
	mr.Set(middleware.KeyReqErrors, "10")
	mr.Set(middleware.KeyResTime, "200")
	mr.Set(middleware.KeyResCount, "40")

	result := CollectHealth(context.Background(), rdb, okPinger{})

	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, 40, result.Traffic.TotalRequests)
	assert.Equal(t, 30, result.Traffic.SuccessCount)
	assert.Equal(t, 10, result.Traffic.FailedCount)
	assert.Equal(t, "75.0", result.Traffic.SuccessRate)
	assert.Equal(t, "5.00", result.Traffic.AvgResponseTime)
	assert.Equal(t, "connected", result.Dependencies["redis"].Status)
	assert.Equal(t, "connected", result.Dependencies["database"].Status)
}

func TestCollectHealth_ReportsIssueWithoutDatabase(t *testing.T) {
	_, rdb := setupRedis(t)

	result := CollectHealth(context.Background(), rdb, nil)

	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, "disconnected", result.Dependencies["database"].Status)

	// First collection seeds the start-time marker.
	assert.True(t, rdb.Exists(context.Background(), middleware.KeyStartTime).Val() == 1)
}

func TestReset_RequiresAdminKey(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Set(middleware.KeyReqTotal, "12")

	h := &Handlers{Rdb: rdb, DB: okPinger{}, HealthAdminKey: "letmein"}
	app := fiber.New()
	app.Get("/reset", h.Reset)

	resp, err := app.Test(httptest.NewRequest("GET", "/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.True(t, mr.Exists(middleware.KeyReqTotal))

	resp, err = app.Test(httptest.NewRequest("GET", "/reset?key=letmein", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, mr.Exists(middleware.KeyReqTotal))
	assert.True(t, mr.Exists(middleware.KeyStartTime))
}

func TestErrors_ReturnsLoggedEntries(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Lpush(middleware.KeyErrorLog, `{"path":"/api/v1/farms","status":500}`)

	h := &Handlers{Rdb: rdb}
	app := fiber.New()
	app.Get("/health/errors", h.Errors)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/api/v1/farms")
}
