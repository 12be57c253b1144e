package storage

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// InitSchema applies the embedded goose migrations.
func (b *SQLiteBackend) InitSchema(ctx context.Context) error {
	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, b.db, migrations)
	if err != nil {
		return errors.Wrap(err, "goose provider")
	}
	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (map[string]domain.Poll, error) {
	rows, err := b.db.QueryContext(ctx, `
SELECT id, message_id, channel_id, created_by, status, max_votes, allowed_options, kind
FROM polls
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	polls := make(map[string]domain.Poll)
	for rows.Next() {
		var (
			p              domain.Poll
			status, kind   string
			allowedOptions string
		)
		if err := rows.Scan(&p.ID, &p.MessageID, &p.ChannelID, &p.CreatedBy, &status, &p.MaxVotesPerUser, &allowedOptions, &kind); err != nil {
			return nil, err
		}
		var tokens []string
		if err := json.Unmarshal([]byte(allowedOptions), &tokens); err != nil {
			return nil, errors.Wrapf(err, "poll %s: allowed options", p.ID)
		}
		p.Status = domain.ParseStatus(status)
		p.Kind = domain.ParseKind(kind)
		p.AllowedOptions = domain.NewOptionSet(tokens...)
		polls[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return polls, nil
}

// Save replaces the table contents in a single transaction.
func (b *SQLiteBackend) Save(ctx context.Context, polls map[string]domain.Poll) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM polls`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO polls(id, message_id, channel_id, created_by, status, max_votes, allowed_options, kind)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range polls {
		var options []byte
		options, err = json.Marshal(p.AllowedOptions.Tokens())
		if err != nil {
			return err
		}
		if _, err = stmt.ExecContext(ctx, p.ID, p.MessageID, p.ChannelID, p.CreatedBy,
			string(p.Status), p.MaxVotesPerUser, string(options), string(p.Kind)); err != nil {
			return err
		}
	}

	return tx.Commit()
}
