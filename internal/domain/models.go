package domain

type Status string

const (
	StatusActive Status = "active"
	StatusFrozen Status = "frozen"
)

// ParseStatus accepts the legacy spelling "freezed".
func ParseStatus(s string) Status {
	switch s {
	case "frozen", "freezed":
		return StatusFrozen
	default:
		return StatusActive
	}
}

// Kind tells who authored the poll message.
type Kind string

const (
	// KindStandalone polls live in an embed the bot sent itself.
	KindStandalone Kind = "standalone"
	// KindAttached polls are bound to an existing text message.
	KindAttached Kind = "attached"
)

// ParseKind maps stored values to a Kind. Old records used "user" for
// standalone polls or had no kind at all.
func ParseKind(s string) Kind {
	if s == string(KindAttached) {
		return KindAttached
	}
	return KindStandalone
}

type Poll struct {
	ID              string
	MessageID       string
	ChannelID       string
	CreatedBy       string
	Status          Status
	MaxVotesPerUser int
	AllowedOptions  OptionSet
	Kind            Kind
}

func (p Poll) Frozen() bool {
	return p.Status == StatusFrozen
}

// Unlimited reports whether users may vote for any number of options.
func (p Poll) Unlimited() bool {
	return p.MaxVotesPerUser <= 0
}
