package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plateful/plateful/internal/pkg/pos"
)

func TestSignatureHeaderPerProvider(t *testing.T) {
	tests := []struct {
		provider pos.Provider
		header   string
	}{
		{pos.ProviderToast, "Toast-Signature"},
		{pos.ProviderClover, "X-Clover-Signature"},
		{pos.ProviderSquare, "x-square-hmacsha256-signature"},
		{pos.ProviderMock, "X-Webhook-Signature"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			var got string
			app := fiber.New()
			app.Post("/hook", func(c *fiber.Ctx) error {
				got = signatureHeader(c, tt.provider)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}"))
			req.Header.Set(tt.header, "sig-value")
			req.Header.Set("X-Unrelated-Signature", "decoy")

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, "sig-value", got)
		})
	}
}
