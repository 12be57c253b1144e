package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
)

// PollSource is the read side of the poll store.
type PollSource interface {
	Get(id string) (domain.Poll, bool)
	All() []domain.Poll
}

type PollView struct {
	ID              string   `json:"id"`
	MessageID       string   `json:"messageId"`
	ChannelID       string   `json:"channelId"`
	CreatedBy       string   `json:"createdBy"`
	Status          string   `json:"status"`
	MaxVotesPerUser int      `json:"maxVotesPerUser"`
	AllowedOptions  []string `json:"allowedOptions"`
	Kind            string   `json:"kind"`
}

func viewOf(p domain.Poll) PollView {
	return PollView{
		ID:              p.ID,
		MessageID:       p.MessageID,
		ChannelID:       p.ChannelID,
		CreatedBy:       p.CreatedBy,
		Status:          string(p.Status),
		MaxVotesPerUser: p.MaxVotesPerUser,
		AllowedOptions:  p.AllowedOptions.Tokens(),
		Kind:            string(p.Kind),
	}
}

type PollHandle struct {
	polls PollSource
}

func RegisterPolls(r fiber.Router, polls PollSource) {
	handler := PollHandle{polls: polls}

	r.Get("/", handler.List)
	r.Get("/:id", handler.Get)
}

// List returns every poll, optionally filtered by ?channel=.
func (h *PollHandle) List(c *fiber.Ctx) error {
	channel := c.Query("channel")
	out := make([]PollView, 0)
	for _, p := range h.polls.All() {
		if channel != "" && p.ChannelID != channel {
			continue
		}
		out = append(out, viewOf(p))
	}
	return c.JSON(fiber.Map{
		"code": "200",
		"data": out,
	})
}

func (h *PollHandle) Get(c *fiber.Ctx) error {
	id := strings.TrimPrefix(c.Params("id"), "#")
	p, ok := h.polls.Get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "poll not found",
		})
	}
	return c.JSON(fiber.Map{
		"code": "200",
		"data": viewOf(p),
	})
}
