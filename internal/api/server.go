// Package api serves a read-only view of the poll store over HTTP.
package api

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/api/handlers"
)

// NewFiber builds the status app. Every route requires ?key=<key>.
func NewFiber(polls handlers.PollSource, key string) *fiber.App {
	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberzerolog.New(fiberzerolog.Config{
		Logger: &log.Logger,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))

	api := app.Group("/api/v1", handlers.Verify(key))
	handlers.RegisterPolls(api.Group("/polls"), polls)
	handlers.RegisterSystem(api.Group("/system"), polls)
	return app
}
