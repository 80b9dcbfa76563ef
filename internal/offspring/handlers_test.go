package offspring

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"herdbook-backend/internal/farms"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTracking_RejectsLineageRebind(t *testing.T) {
	f := setupOffspringTest(t)
	h := &Handlers{Service: f.svc, Farms: &farms.Service{DB: f.db}}

	app := fiber.New()
	app.Patch("/offspring/:id/tracking", func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{"user_id": f.farm.OwnerID.String()})
		return h.UpdateTracking(c)
	})

	req := httptest.NewRequest("PATCH", "/offspring/"+f.tracking.OffspringID.String()+"/tracking",
		strings.NewReader(`{"dam_id":"`+uuid.New().String()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "cannot be changed")
}
