// handlers/router.go
package handlers

import (
	"bounty-ledger/middleware"
	"bounty-ledger/services"
	"bounty-ledger/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type AppConfig struct {
	GatewayToken        string
	OracleCallbackToken string
	AllowOrigins        string
}

type Services struct {
	Members       *services.MemberService
	Bounties      *services.BountyService
	Items         *services.ItemService
	Announcements *services.AnnouncementService
	Media         utils.MediaStore
}

// NewApp wires middleware and routes. Everything except /hooks/ must come
// through the Gateway.
func NewApp(cfg AppConfig, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024,
	})

	if cfg.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: "GET,POST,PUT,OPTIONS",
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-Service-Token",
			MaxAge:       86400,
		}))
	}
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, "/hooks/"))

	SetupMemberRoutes(app, svc.Members)
	SetupBountyRoutes(app, svc.Bounties, svc.Media)
	SetupOracleRoutes(app, svc.Bounties, cfg.OracleCallbackToken)
	SetupItemRoutes(app, svc.Items, svc.Media)
	SetupAnnouncementRoutes(app, svc.Announcements)

	return app
}
