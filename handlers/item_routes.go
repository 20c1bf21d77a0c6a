// handlers/item_routes.go
package handlers

import (
	"log"

	"bounty-ledger/middleware"
	"bounty-ledger/services"
	"bounty-ledger/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupItemRoutes(app *fiber.App, items *services.ItemService, media utils.MediaStore) {
	user := middleware.UserContextMiddleware()

	app.Get("/items", func(c *fiber.Ctx) error {
		listing, err := items.ListItems()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(listing)
	})

	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid item id")
		}
		item, err := items.GetItem(id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(item)
	})

	app.Post("/items", user, func(c *fiber.Ctx) error {
		var in services.AddItemInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		if fh, err := c.FormFile("image"); err == nil {
			if media == nil {
				return badRequest(c, "media uploads are not configured")
			}
			imageURL, err := utils.UploadMultipart(c.UserContext(), media, fh, "items", in.Title)
			if err != nil {
				log.Printf("❌ [ITEMS] image upload failed: %v", err)
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "image upload failed"})
			}
			in.ImageURL = imageURL
		}

		id, err := items.AddItem(middleware.CallerID(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	})

	app.Post("/items/:id/delist", user, func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid item id")
		}
		if err := items.DelistItem(middleware.CallerID(c), id); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"id": id, "active": false})
	})

	app.Post("/items/:id/buy", user, func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return badRequest(c, "invalid item id")
		}
		purchase, err := items.BuyItem(middleware.CallerID(c), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(purchase)
	})
}
