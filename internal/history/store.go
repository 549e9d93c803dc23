// Package history persists every trigger and its outcome in the SQLite
// action log.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/mattjoyce/tooly/internal/protocol"
)

// Store reads and writes the action_log table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Digest returns the hex BLAKE3 digest of a raw payload.
func Digest(payload string) string {
	sum := blake3.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Record inserts a new entry. CreatedAt defaults to now and Status to
// StatusReceived.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("history entry id is empty")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.Status == "" {
		e.Status = StatusReceived
	}

	items, err := json.Marshal(nonNil(e.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO action_log(id, command, action_type, target, items, action, payload_digest, status, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?);
`, e.ID, e.Command, string(e.ActionType), e.Target, string(items), e.Action, e.PayloadDigest,
		string(e.Status), e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Describe fills the instruction columns of an entry once the payload has
// been decoded.
func (s *Store) Describe(ctx context.Context, id string, in protocol.Instruction) error {
	items, err := json.Marshal(nonNil(in.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE action_log SET action_type = ?, target = ?, items = ?, action = ? WHERE id = ?;
`, string(in.ActionType), in.Target, string(items), in.Action, id)
	if err != nil {
		return fmt.Errorf("describe history entry: %w", err)
	}
	return requireRow(res, id)
}

// SetStatus moves an entry to a non-terminal status.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE action_log SET status = ? WHERE id = ?;`, string(status), id)
	if err != nil {
		return fmt.Errorf("update history status: %w", err)
	}
	return requireRow(res, id)
}

// Complete writes the final state of an entry.
func (s *Store) Complete(ctx context.Context, id string, c Completion) error {
	var exitCode sql.NullInt64
	if c.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*c.ExitCode), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE action_log
SET status = ?, detail = ?, error = ?, stdout = ?, stderr = ?, exit_code = ?, completed_at = ?
WHERE id = ?;
`, string(c.Status), nullString(c.Detail), nullString(c.Error), nullString(c.Stdout), nullString(c.Stderr),
		exitCode, s.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("complete history entry: %w", err)
	}
	return requireRow(res, id)
}

const selectColumns = `id, command, action_type, target, items, action, payload_digest, status,
  detail, error, stdout, stderr, exit_code, created_at, completed_at`

// Get returns one entry or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM action_log WHERE id = ?;`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM action_log ORDER BY created_at DESC, id DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Prune deletes entries created before now minus retention and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive")
	}
	cutoff := s.now().Add(-retention).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_log WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e                          Entry
		actionType, target, action sql.NullString
		items, status              string
		detail, errText            sql.NullString
		stdout, stderr             sql.NullString
		exitCode                   sql.NullInt64
		createdAtS                 string
		completedAtS               sql.NullString
	)
	if err := sc.Scan(&e.ID, &e.Command, &actionType, &target, &items, &action, &e.PayloadDigest, &status,
		&detail, &errText, &stdout, &stderr, &exitCode, &createdAtS, &completedAtS); err != nil {
		return nil, err
	}

	e.ActionType = protocol.ActionType(actionType.String)
	e.Target = target.String
	e.Action = action.String
	e.Status = Status(status)
	e.Detail = detail.String
	e.Error = errText.String
	e.Stdout = stdout.String
	e.Stderr = stderr.String
	if exitCode.Valid {
		code := int(exitCode.Int64)
		e.ExitCode = &code
	}
	if err := json.Unmarshal([]byte(items), &e.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
		e.CreatedAt = t
	}
	if completedAtS.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completedAtS.String); err == nil {
			e.CompletedAt = &t
		}
	}
	return &e, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
