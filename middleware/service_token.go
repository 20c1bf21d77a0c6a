package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenMiddleware guards service-to-service hooks with the
// X-Service-Token header.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get("X-Service-Token")
		if expectedToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expectedToken)) != 1 {
			log.Printf("🚫 [SERVICE_AUTH] rejected %s from %s", c.Path(), c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
