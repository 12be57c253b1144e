package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
	"github.com/maaaruch/reactionpoll-bot/internal/host"
	"github.com/maaaruch/reactionpoll-bot/internal/host/discord"
	"github.com/maaaruch/reactionpoll-bot/internal/polls"
)

const usage = "Reaction polls:\n" +
	"`%[1]spoll create \"question\" maxVotes emoji...` – post a new poll (maxVotes 0 = unlimited)\n" +
	"`%[1]spoll attach #channel messageID maxVotes emoji...` – turn an existing message into a poll\n" +
	"`%[1]spoll delete ID` – forget a poll (the message stays)\n" +
	"`%[1]spoll freeze ID` – freeze or unfreeze a poll\n" +
	"`%[1]spoll clear ID` – remove all votes\n" +
	"`%[1]spoll list` – polls in this channel"

// maxListLen keeps list replies under the platform's message limit.
const maxListLen = 1900

var commandNames = map[string]bool{
	"poll":          true,
	"rp":            true,
	"reactionpoll":  true,
	"reactionpolls": true,
}

type App struct {
	host   host.Host
	engine *polls.Engine
	prefix string
}

func New(h host.Host, engine *polls.Engine, prefix string) *App {
	return &App{
		host:   h,
		engine: engine,
		prefix: prefix,
	}
}

// Command is a chat message that may carry a poll command.
type Command struct {
	ChannelID string
	Author    host.User
	Text      string
}

// Bind routes session events into the app. Handlers use ctx for their
// platform calls.
func (a *App) Bind(ctx context.Context, s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		a.HandleMessage(ctx, Command{
			ChannelID: m.ChannelID,
			Author:    discord.User(m.Author),
			Text:      m.Content,
		})
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		a.engine.Reconciler.ReactionAdded(ctx, reactionEvent(r.MessageReaction))
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		a.engine.Reconciler.ReactionRemoved(ctx, reactionEvent(r.MessageReaction))
	})
}

func reactionEvent(r *discordgo.MessageReaction) polls.ReactionEvent {
	return polls.ReactionEvent{
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     discord.Emoji(&r.Emoji),
	}
}

// Run keeps poll messages cached until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	log.Info().Msg("reaction polls running")
	a.engine.Refresher.Run(ctx)
}

// ---------- Commands ----------

func (a *App) HandleMessage(ctx context.Context, cmd Command) {
	if !strings.HasPrefix(cmd.Text, a.prefix) {
		return
	}
	args := splitArgs(strings.TrimPrefix(cmd.Text, a.prefix))
	if len(args) == 0 || !commandNames[strings.ToLower(args[0])] {
		return
	}
	if len(args) < 2 {
		a.reply(ctx, cmd.ChannelID, fmt.Sprintf(usage, a.prefix))
		return
	}

	sub, rest := strings.ToLower(args[1]), args[2:]
	switch sub {
	case "create", "crt":
		a.handleCreate(ctx, cmd, rest)
	case "attach":
		a.handleAttach(ctx, cmd, rest)
	case "delete", "del":
		a.handleDelete(ctx, cmd, rest)
	case "freeze", "frz":
		a.handleFreeze(ctx, cmd, rest)
	case "clear", "clr":
		a.handleClear(ctx, cmd, rest)
	case "list", "ls":
		a.handleList(ctx, cmd)
	default:
		a.reply(ctx, cmd.ChannelID, fmt.Sprintf(usage, a.prefix))
	}
}

func (a *App) handleCreate(ctx context.Context, cmd Command, args []string) {
	if len(args) < 3 {
		a.reply(ctx, cmd.ChannelID, "Format: `"+a.prefix+"poll create \"question\" maxVotes emoji...` – at least one emoji is required")
		return
	}
	maxVotes, err := strconv.Atoi(args[1])
	if err != nil {
		a.reply(ctx, cmd.ChannelID, "maxVotes has to be a number (0 = unlimited).")
		return
	}

	p, err := a.engine.Manager.Create(ctx, polls.CreateRequest{
		ChannelID:       cmd.ChannelID,
		Author:          cmd.Author,
		Question:        args[0],
		MaxVotesPerUser: maxVotes,
		Options:         args[2:],
	})
	if err != nil {
		a.fail(ctx, cmd, "create", err)
		return
	}
	log.Info().Str("poll", p.ID).Str("user", cmd.Author.ID).Msg("poll created")
}

func (a *App) handleAttach(ctx context.Context, cmd Command, args []string) {
	if len(args) < 4 {
		a.reply(ctx, cmd.ChannelID, "Format: `"+a.prefix+"poll attach #channel messageID maxVotes emoji...` – at least one emoji is required")
		return
	}
	maxVotes, err := strconv.Atoi(args[2])
	if err != nil {
		a.reply(ctx, cmd.ChannelID, "maxVotes has to be a number (0 = unlimited).")
		return
	}

	p, err := a.engine.Manager.Attach(ctx, polls.AttachRequest{
		ChannelID:       channelID(args[0]),
		MessageID:       args[1],
		Author:          cmd.Author,
		MaxVotesPerUser: maxVotes,
		Options:         args[3:],
	})
	if err != nil {
		a.fail(ctx, cmd, "attach", err)
		return
	}
	a.reply(ctx, cmd.ChannelID, fmt.Sprintf("Done! Poll `#%s` attached :ok_hand:", p.ID))
}

func (a *App) handleDelete(ctx context.Context, cmd Command, args []string) {
	id, ok := a.pollID(ctx, cmd, args)
	if !ok {
		return
	}
	if err := a.engine.Manager.Delete(ctx, id, cmd.Author.ID); err != nil {
		a.fail(ctx, cmd, "delete", err)
		return
	}
	a.reply(ctx, cmd.ChannelID, "Poll deleted from database! :wave:")
}

func (a *App) handleFreeze(ctx context.Context, cmd Command, args []string) {
	id, ok := a.pollID(ctx, cmd, args)
	if !ok {
		return
	}
	status, err := a.engine.Manager.Freeze(ctx, id, cmd.Author.ID)
	if err != nil {
		a.fail(ctx, cmd, "freeze", err)
		return
	}
	if status == domain.StatusFrozen {
		a.reply(ctx, cmd.ChannelID, "Poll frozen! :snowflake:")
	} else {
		a.reply(ctx, cmd.ChannelID, "Poll unfrozen! :zap:")
	}
}

func (a *App) handleClear(ctx context.Context, cmd Command, args []string) {
	id, ok := a.pollID(ctx, cmd, args)
	if !ok {
		return
	}
	if err := a.engine.Manager.Clear(ctx, id, cmd.Author.ID); err != nil {
		a.fail(ctx, cmd, "clear", err)
		return
	}
	a.reply(ctx, cmd.ChannelID, "Poll cleared! :cloud_tornado:")
}

func (a *App) handleList(ctx context.Context, cmd Command) {
	var sb strings.Builder
	for _, p := range a.engine.Manager.List() {
		if p.ChannelID != cmd.ChannelID {
			continue
		}
		limit := "unlimited"
		if !p.Unlimited() {
			limit = strconv.Itoa(p.MaxVotesPerUser)
		}
		sb.WriteString(fmt.Sprintf("`#%s` %s, %s, max votes: %s – %s\n",
			p.ID, p.Kind, p.Status, limit, strings.Join(p.AllowedOptions.Tokens(), " ")))
	}
	if sb.Len() == 0 {
		a.reply(ctx, cmd.ChannelID, "No polls in this channel.")
		return
	}

	text := sb.String()
	if len(text) > maxListLen {
		cut := maxListLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "\n…"
	}
	a.reply(ctx, cmd.ChannelID, "Polls in this channel:\n"+text)
}

// ---------- helpers ----------

func (a *App) pollID(ctx context.Context, cmd Command, args []string) (string, bool) {
	if len(args) == 0 || strings.TrimPrefix(args[0], "#") == "" {
		a.reply(ctx, cmd.ChannelID, "You have to tell me the poll id... :thinking:")
		return "", false
	}
	return args[0], true
}

// fail replies with a message matching the error class.
func (a *App) fail(ctx context.Context, cmd Command, op string, err error) {
	var text string
	switch {
	case errors.Is(err, polls.ErrValidation):
		text = fmt.Sprintf("That didn't work: %v", err)
	case errors.Is(err, polls.ErrPermission):
		text = "You are not allowed to manage this reaction poll... :warning:"
	case errors.Is(err, polls.ErrStateConflict):
		text = "This poll is frozen, you have to unfreeze it before clearing it... :warning:"
	case errors.Is(err, polls.ErrNotFound) && op == "attach":
		text = "Unable to find that message! :scream:"
	case errors.Is(err, polls.ErrNotFound):
		text = "Unable to find poll! :scream:"
	case errors.Is(err, polls.ErrHost):
		text = "I need the `Embed links` and `Add reactions` permissions for this, or one of the emoji is not usable here."
	default:
		text = "Something went wrong, please try again."
	}
	log.Warn().Err(err).Str("op", op).Str("user", cmd.Author.ID).Str("channel", cmd.ChannelID).Msg("poll command failed")
	a.reply(ctx, cmd.ChannelID, text)
}

func (a *App) reply(ctx context.Context, channelID, text string) {
	if err := a.host.SendText(ctx, channelID, text); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("send reply")
	}
}
