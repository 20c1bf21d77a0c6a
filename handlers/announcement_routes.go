// handlers/announcement_routes.go
package handlers

import (
	"bounty-ledger/middleware"
	"bounty-ledger/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAnnouncementRoutes(app *fiber.App, board *services.AnnouncementService) {
	user := middleware.UserContextMiddleware()

	app.Get("/announcements", func(c *fiber.Ctx) error {
		out, err := board.ListAnnouncements()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(out)
	})

	app.Post("/announcements", user, func(c *fiber.Ctx) error {
		var req struct {
			Title string `json:"title"`
			Body  string `json:"body"`
			Pin   bool   `json:"pin"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		id, err := board.AddAnnouncement(middleware.CallerID(c), req.Title, req.Body, req.Pin)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "pinned": req.Pin})
	})

	app.Post("/announcements/:id/pin", user, func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 0 {
			return badRequest(c, "invalid announcement id")
		}
		if err := board.PinAnnouncement(middleware.CallerID(c), uint(id)); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"pinned": id})
	})
}
