package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name string `json:"name" validate:"required"`
	Mode string `json:"mode" validate:"omitempty,oneof=a b"`
}

func decode(t *testing.T, body io.Reader) BaseResponse[any] {
	t.Helper()
	var out BaseResponse[any]
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/app", func(c *fiber.Ctx) error {
		return NewAppError(fiber.StatusUnprocessableEntity, "Proposal could not be applied", errors.New("x"), "edit 1: not found")
	})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return ValidateRequest(sampleRequest{Mode: "c"})
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nope")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	tests := []struct {
		path    string
		status  int
		message string
		errors  int
	}{
		{"/app", 422, "Proposal could not be applied", 1},
		{"/validation", 400, "Validation failed", 2},
		{"/fiber", 404, "nope", 0},
		{"/plain", 500, "Internal server error", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode(t, resp.Body)
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
			assert.Len(t, body.Errors, tt.errors)
		})
	}
}

func TestValidationUsesJSONNames(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return ValidateRequest(sampleRequest{}) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	body := decode(t, resp.Body)
	assert.Equal(t, []string{"name is required"}, body.Errors)
}

func TestJwtMiddleware(t *testing.T) {
	const secret = "test-secret"
	userID := uuid.New()

	app := fiber.New()
	app.Use(NewJwtMiddleware(secret))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c).String())
	})

	token, err := SignToken(secret, userID)
	require.NoError(t, err)
	forged, err := SignToken("other", userID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", 401},
		{"wrong scheme", "Token " + token, 401},
		{"bad signature", "Bearer " + forged, 401},
		{"ok", "Bearer " + token, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == 200 {
				b, _ := io.ReadAll(resp.Body)
				assert.Equal(t, userID.String(), string(b))
			}
		})
	}
}
