package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bounty-ledger/config"
	"bounty-ledger/handlers"
	"bounty-ledger/models"
	"bounty-ledger/services"
	"bounty-ledger/utils"
	"bounty-ledger/workers"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	cfg := config.Load()

	db, err := utils.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	clock := clockwork.NewRealClock()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	memberService := services.NewMemberService(db)
	if cfg.BootstrapAdminID != "" {
		if err := memberService.EnsureAdmin(cfg.BootstrapAdminID, cfg.BootstrapAdminName); err != nil {
			log.Fatal("failed to bootstrap admin:", err)
		}
	}

	oracleClient := services.NewHTTPOracleClient(cfg.OracleURL, cfg.OracleToken)
	bountyService := services.NewBountyService(db, memberService, oracleClient, clock)
	bountyService.CallbackURL = cfg.OracleCallbackURL
	itemService := services.NewItemService(db, memberService, clock)
	announcementService := services.NewAnnouncementService(db, memberService)

	var media utils.MediaStore
	if cfg.R2.AccountID != "" {
		store, err := utils.NewR2MediaStore(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		media = store
	} else {
		log.Println("⚠️  R2 not configured, media uploads disabled")
	}

	var publisher services.EventPublisher = services.LogPublisher{}
	if cfg.RedisURL != "" {
		rdb := utils.MustRedis(cfg.RedisURL)
		defer rdb.Close()
		publisher = services.NewRedisStreamPublisher(rdb, cfg.EventStream)
	} else {
		log.Println("⚠️  REDIS_URL not set, bounty events will only be logged")
	}
	relay := services.NewEventRelay(db, publisher, clock)

	sched, err := services.StartScheduler(ctx, relay, bountyService, cfg.EventRelayInterval, cfg.OracleStaleAfter)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}
	defer func() { _ = sched.Shutdown() }()

	workers.NewOraclePollWorker(bountyService, oracleClient, cfg.OraclePollInterval).Start(ctx)
	if cfg.ProfileSyncURL != "" {
		workers.NewMemberSyncWorker(db, cfg.ProfileSyncURL, cfg.ProfileSyncToken, utils.HTTPClient).Start(ctx)
	}

	app := handlers.NewApp(handlers.AppConfig{
		GatewayToken:        cfg.GatewayToken,
		OracleCallbackToken: cfg.OracleCallbackToken,
		AllowOrigins:        cfg.AllowOrigins,
	}, handlers.Services{
		Members:       memberService,
		Bounties:      bountyService,
		Items:         itemService,
		Announcements: announcementService,
		Media:         media,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Oracle polling every %s, event relay every %s", cfg.OraclePollInterval, cfg.EventRelayInterval)
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
