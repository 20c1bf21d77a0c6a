// handlers/oracle_routes.go
package handlers

import (
	"errors"
	"strings"

	"bounty-ledger/middleware"
	"bounty-ledger/services"

	"github.com/gofiber/fiber/v2"
)

type fulfillRequest struct {
	RequestID string `json:"request_id"`
	Result    *bool  `json:"result"`
}

// SetupOracleRoutes registers the correlation lookup and the oracle's push
// webhook. The webhook lives under /hooks/ and is authenticated with the
// oracle's service token instead of the gateway token.
func SetupOracleRoutes(app *fiber.App, bounties *services.BountyService, callbackToken string) {
	app.Get("/oracle/requests/:request_id", func(c *fiber.Ctx) error {
		entry, err := bounties.GetOracleRequest(c.Params("request_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(entry)
	})

	hooks := app.Group("/hooks/oracle", middleware.ServiceTokenMiddleware(callbackToken))
	hooks.Post("/fulfill", func(c *fiber.Ctx) error {
		var req fulfillRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		req.RequestID = strings.TrimSpace(req.RequestID)
		if req.RequestID == "" || req.Result == nil {
			return badRequest(c, "request_id and result are required")
		}

		err := bounties.OnFulfillment(req.RequestID, *req.Result)
		if errors.Is(err, services.ErrAlreadyFulfilled) {
			// Redelivery; the first delivery already settled it.
			return c.JSON(fiber.Map{"request_id": req.RequestID, "status": "already_fulfilled"})
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"request_id": req.RequestID, "status": "fulfilled"})
	})
}
