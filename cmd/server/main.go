package main

import (
	"log"
	"os"
	"runtime"
	"time"

	"backend-hallpass/internal/config"
	"backend-hallpass/internal/http/handler"
	"backend-hallpass/internal/http/middleware"
	"backend-hallpass/internal/monitoring"
	"backend-hallpass/internal/pass"
	"backend-hallpass/internal/realtime"
	"backend-hallpass/internal/roster"
	"backend-hallpass/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	rosterCacheTTL = 10 * time.Minute
	sweepInterval  = 30 * time.Second
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	config.LoadEnv()
	config.InitRedis()
	config.InitDB()
	defer config.CloseDB()

	tenants := store.NewTenants(config.DB)
	sessions := store.NewSessions(config.DB)
	bans := store.NewBans(config.DB)
	resolver := roster.NewResolver(config.DB, config.Redis, rosterCacheTTL)

	registry := pass.NewRegistry(store.NewLoader(tenants, sessions))
	ctrl := pass.NewController(resolver, sessions, bans)
	hubs := realtime.NewHubs(registry)

	handler.Wire(registry, ctrl, hubs, tenants, sessions, bans, resolver)
	go runSweep(registry, ctrl, hubs)

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Hallpass API up",
		})
	})

	app.Post("/san/login", handler.Login)
	app.Get("/metrics", middleware.BasicAuth(), adaptor.HTTPHandler(promhttp.Handler()))

	// Public kiosk/display endpoints, tenant resolved from the URL token
	app.Post("/api/kiosk/:token/scan", middleware.KioskAuth(tenants), handler.Scan)
	app.Get("/api/kiosk/:token/status", middleware.KioskAuth(tenants), handler.Status)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/display/:token", middleware.KioskAuth(tenants), websocket.New(handler.DisplayWS))

	// Admin API (JWT, tenant comes from the claims)
	api := app.Group("/api", middleware.JWTAuth())

	api.Post("/logout", handler.Logout)
	api.Get("/settings", handler.GetSettings)
	api.Put("/settings", handler.UpdateSettings)
	api.Post("/override_end", handler.OverrideEnd)
	api.Post("/students/ban", handler.SetStudentBan)
	api.Delete("/queue/:key", handler.RemoveWaiter)
	api.Post("/kiosk/regenerate", handler.RegenerateKioskToken)
	api.Post("/roster/import", handler.ImportRoster)
	api.Delete("/roster", handler.ClearRoster)
	api.Get("/export.csv", handler.ExportDay)
	api.Get("/stats", handler.GetStats)

	addr := os.Getenv("APP_HOST") + ":" + os.Getenv("APP_PORT")
	log.Println("Server listening on", addr)
	log.Fatal(app.Listen(addr))
}

// runSweep periodically auto-ends and auto-bans overdue passes for every
// hydrated tenant, each under its own lock.
func runSweep(registry *pass.Registry, ctrl *pass.Controller, hubs *realtime.Hubs) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		for _, tenantID := range registry.LoadedTenants() {
			var res pass.SweepResult
			err := registry.With(config.Ctx, tenantID, func(st *pass.TenantState) error {
				var sweepErr error
				res, sweepErr = ctrl.Sweep(config.Ctx, st, time.Now())
				return sweepErr
			})
			if err != nil {
				log.Printf("[sweep] tenant %d failed: %v", tenantID, err)
				continue
			}
			if res.Changed() {
				monitoring.TrackSweep(len(res.Ended), len(res.Banned))
				hubs.Wake(tenantID)
				log.Printf("[sweep] tenant %d: auto-ended %d, auto-banned %d",
					tenantID, len(res.Ended), len(res.Banned))
			}
		}
	}
}
