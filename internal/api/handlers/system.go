package handlers

import (
	"crypto/subtle"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SystemHandle struct {
	polls   PollSource
	started time.Time
}

func RegisterSystem(system fiber.Router, polls PollSource) {
	handler := SystemHandle{polls: polls, started: time.Now()}

	system.Get("/info", handler.GetServerInfo)
}

// GetServerInfo reports runtime stats and the number of tracked polls.
func (s *SystemHandle) GetServerInfo(ctx *fiber.Ctx) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	frozen, polls := 0, s.polls.All()
	for _, p := range polls {
		if p.Frozen() {
			frozen++
		}
	}

	serverInfo := map[string]interface{}{
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"heap_alloc":   m.HeapAlloc,
		"sys":          m.Sys,
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"polls":        len(polls),
		"frozen_polls": frozen,
	}

	return ctx.JSON(fiber.Map{
		"code": "200",
		"data": serverInfo,
	})
}

// Verify checks the ?key= query parameter.
func Verify(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "STATUS_KEY is not set",
			})
		}

		requestKey := c.Query("key")
		if requestKey == "" || subtle.ConstantTimeCompare([]byte(requestKey), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid key",
			})
		}

		return c.Next()
	}
}
