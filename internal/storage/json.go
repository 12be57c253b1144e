package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
)

// JSONBackend stores the collection as one JSON object keyed by poll id.
type JSONBackend struct {
	path string
}

func NewJSON(path string) *JSONBackend {
	return &JSONBackend{path: path}
}

type jsonPoll struct {
	MessageID       string   `json:"messageId"`
	ChannelID       string   `json:"channelId"`
	CreatedBy       string   `json:"createdBy"`
	Status          string   `json:"status"`
	MaxVotesPerUser int      `json:"maxVotesPerUser"`
	AllowedOptions  []string `json:"allowedOptions"`
	Kind            string   `json:"kind"`

	// legacy field names, read only
	MaxReactions  *int     `json:"maxReactions,omitempty"`
	AllowedEmojis []string `json:"allowedEmojis,omitempty"`
	Type          string   `json:"type,omitempty"`
}

func (b *JSONBackend) Load(_ context.Context) (map[string]domain.Poll, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]domain.Poll), nil
		}
		return nil, err
	}

	var raw map[string]jsonPoll
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "decode %s", b.path)
	}

	polls := make(map[string]domain.Poll, len(raw))
	for id, r := range raw {
		options := r.AllowedOptions
		if len(options) == 0 {
			options = r.AllowedEmojis
		}
		maxVotes := r.MaxVotesPerUser
		if r.MaxReactions != nil {
			maxVotes = *r.MaxReactions
		}
		kind := r.Kind
		if kind == "" {
			kind = r.Type
		}
		polls[id] = domain.Poll{
			ID:              id,
			MessageID:       r.MessageID,
			ChannelID:       r.ChannelID,
			CreatedBy:       r.CreatedBy,
			Status:          domain.ParseStatus(r.Status),
			MaxVotesPerUser: maxVotes,
			AllowedOptions:  domain.NewOptionSet(options...),
			Kind:            domain.ParseKind(kind),
		}
	}
	return polls, nil
}

// Save writes to a temp file next to the target and renames it over.
func (b *JSONBackend) Save(_ context.Context, polls map[string]domain.Poll) error {
	raw := make(map[string]jsonPoll, len(polls))
	for id, p := range polls {
		raw[id] = jsonPoll{
			MessageID:       p.MessageID,
			ChannelID:       p.ChannelID,
			CreatedBy:       p.CreatedBy,
			Status:          string(p.Status),
			MaxVotesPerUser: p.MaxVotesPerUser,
			AllowedOptions:  p.AllowedOptions.Tokens(),
			Kind:            string(p.Kind),
		}
	}

	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}
