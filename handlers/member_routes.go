// handlers/member_routes.go
package handlers

import (
	"bounty-ledger/middleware"
	"bounty-ledger/services"

	"github.com/gofiber/fiber/v2"
)

type enrollRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TwitterID string `json:"twitter_id"`
	ImageURL  string `json:"image_url"`
}

func SetupMemberRoutes(app *fiber.App, members *services.MemberService) {
	user := middleware.UserContextMiddleware()

	app.Get("/members", func(c *fiber.Ctx) error {
		listing, err := members.ListMembers()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(listing)
	})

	app.Post("/members/enroll", user, func(c *fiber.Ctx) error {
		var req enrollRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		member, err := members.Enroll(middleware.CallerID(c), req.Name, req.TwitterID, req.ImageURL)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	})

	app.Get("/members/me", user, func(c *fiber.Ctx) error {
		id := middleware.CallerID(c)
		member, err := members.GetMember(id)
		if err != nil {
			return respondError(c, err)
		}
		held, err := members.BountiesHeld(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"member": member, "bounties": held})
	})

	app.Put("/members/me/twitter", user, func(c *fiber.Ctx) error {
		var req struct {
			TwitterID string `json:"twitter_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if err := members.SetTwitterID(middleware.CallerID(c), req.TwitterID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"twitter_id": req.TwitterID})
	})

	// 🔐 Admin
	app.Post("/admin/members", user, func(c *fiber.Ctx) error {
		var req enrollRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		member, err := members.EnrollAdmin(middleware.CallerID(c), req.ID, req.Name, req.TwitterID, req.ImageURL)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(member)
	})

	app.Post("/admin/members/:user_id/promote", user, func(c *fiber.Ctx) error {
		if err := members.Promote(middleware.CallerID(c), c.Params("user_id")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"id": c.Params("user_id"), "role": "admin"})
	})
}
