// handlers/errors.go
package handlers

import (
	"log"
	"strconv"

	"bounty-ledger/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto HTTP statuses
func respondError(c *fiber.Ctx, err error) error {
	code := services.ErrorCode(err)
	status := fiber.StatusConflict
	switch code {
	case "unauthorized":
		status = fiber.StatusForbidden
	case "not_found":
		status = fiber.StatusNotFound
	case "invalid_config":
		status = fiber.StatusBadRequest
	case "insufficient_balance":
		status = fiber.StatusPaymentRequired
	case "internal":
		status = fiber.StatusInternalServerError
		log.Printf("❌ [API] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal error", "code": code})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": code})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": "bad_request"})
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
