package bootstrap

import (
	"harbor-backend/internal/config"
	"harbor-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
)

// New loads configuration and builds the Fiber application.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, _, _, err := router.CreateApp(cfg)
	return app, err
}
