// handlers/bounty_routes.go
package handlers

import (
	"log"

	"bounty-ledger/middleware"
	"bounty-ledger/services"
	"bounty-ledger/utils"

	"github.com/gofiber/fiber/v2"
)

type BountyHandler struct {
	Bounties *services.BountyService
	Media    utils.MediaStore // optional; multipart uploads are refused without it
}

func SetupBountyRoutes(app *fiber.App, bounties *services.BountyService, media utils.MediaStore) {
	h := &BountyHandler{Bounties: bounties, Media: media}
	user := middleware.UserContextMiddleware()

	// 🔓 Read-only
	app.Get("/bounties", h.list)
	app.Get("/bounties/:id", h.get)
	app.Get("/bounties/:id/holders/:user_id", h.hasBounty)
	app.Get("/bounties/:id/pending", h.pending)

	// 🔐 Caller required
	app.Post("/bounties", user, h.create)
	app.Post("/bounties/:id/delist", user, h.delist)
	app.Post("/bounties/:id/apply", user, h.apply)
	app.Post("/bounties/:id/requests/:index/approve", user, h.approve)
	app.Post("/bounties/:id/requests/:index/reject", user, h.reject)
}

func (h *BountyHandler) list(c *fiber.Ctx) error {
	listing, err := h.Bounties.ListBounties()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

func (h *BountyHandler) get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid bounty id")
	}
	view, err := h.Bounties.GetBounty(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

func (h *BountyHandler) hasBounty(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid bounty id")
	}
	held, err := h.Bounties.HasBounty(id, c.Params("user_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bounty_id": id, "user_id": c.Params("user_id"), "has_bounty": held})
}

func (h *BountyHandler) pending(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid bounty id")
	}
	apps, err := h.Bounties.ListPending(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bounty_id": id, "pending": apps})
}

// create accepts JSON, or multipart with an optional "media" file
func (h *BountyHandler) create(c *fiber.Ctx) error {
	var in services.CreateBountyInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	if fh, err := c.FormFile("media"); err == nil {
		if h.Media == nil {
			return badRequest(c, "media uploads are not configured")
		}
		mediaURL, err := utils.UploadMultipart(c.UserContext(), h.Media, fh, "bounties", in.Title)
		if err != nil {
			log.Printf("❌ [BOUNTY] media upload failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "media upload failed"})
		}
		in.MediaRef = mediaURL
	}

	id, err := h.Bounties.CreateBounty(middleware.CallerID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *BountyHandler) delist(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid bounty id")
	}
	if err := h.Bounties.Delist(middleware.CallerID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "active": false})
}

func (h *BountyHandler) apply(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid bounty id")
	}
	receipt, err := h.Bounties.SubmitApplication(c.UserContext(), id, middleware.CallerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(receipt)
}

func (h *BountyHandler) approve(c *fiber.Ctx) error {
	return h.decide(c, h.Bounties.Approve, "approved")
}

func (h *BountyHandler) reject(c *fiber.Ctx) error {
	return h.decide(c, h.Bounties.Reject, "rejected")
}

func (h *BountyHandler) decide(c *fiber.Ctx, fn func(caller string, bountyID, requestIndex uint) error, status string) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid bounty id")
	}
	index, ok := paramID(c, "index")
	if !ok {
		return badRequest(c, "invalid request index")
	}
	if err := fn(middleware.CallerID(c), id, index); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"bounty_id": id, "request_index": index, "status": status})
}
