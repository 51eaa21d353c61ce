package server

import (
	"slices"
	"time"

	"github.com/micuatri/calendarlink/internal/auth"
	"github.com/micuatri/calendarlink/internal/controllers"
	"github.com/micuatri/calendarlink/internal/middlewares"
	"github.com/micuatri/calendarlink/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/rs/zerolog/log"
)

const serviceName = "calendarlink"

type HTTPServerDependencies struct {
	CORSOrigins        []string
	SessionVerifier    *auth.SessionVerifier
	CalendarController *controllers.CalendarController
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName:      serviceName,
		ErrorHandler: middlewares.ErrorHandler,
	})

	router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	router.Use(logger.New())

	// Health check endpoint (no authentication required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   serviceName,
			"version":   version.GetVersion(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	if deps.SessionVerifier == nil {
		log.Fatal().Msg("Session verifier is nil, please configure SESSION_SECRET")
	}

	api := router.Group("/api", middlewares.SessionMiddleware(deps.SessionVerifier))

	api.Get("/calendar/google/status", deps.CalendarController.GetStatus)
	api.Post("/calendar/google/export", deps.CalendarController.Export)

	api.Get("/auth/google/connect", deps.CalendarController.Connect)
	api.Get("/auth/google/callback", deps.CalendarController.Callback)
	api.Delete("/auth/google", deps.CalendarController.Disconnect)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowHeaders: []string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			middlewares.SessionHeader,
		},
	}

	if len(origins) == 0 || slices.Contains(origins, "*") {
		config.AllowOrigins = []string{"*"}
		return config
	}

	config.AllowOrigins = origins
	config.AllowCredentials = true

	return config
}
