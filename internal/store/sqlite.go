// Package store persists the interrogation state in SQLite.
//
// It implements engine.Store. Sessions are stored as one row each with the
// question and answer lists serialized inline, so SaveSession is a single
// atomic upsert — concurrent callers on the same session id are serialized
// by the database, which is the concurrency contract the engine relies on.
// Premises and contradictions are row-per-record since they are queried and
// upserted independently.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/probelabs/socratic/internal/engine"
	"github.com/probelabs/socratic/internal/epic"
	"github.com/probelabs/socratic/internal/session"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Config holds store configuration.
type Config struct {
	// Path is the database file. The parent directory is created if
	// missing. ":memory:" is accepted for tests.
	Path string
}

// DefaultConfig stores the database under the user's home directory.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{Path: filepath.Join(home, ".socratic", "socratic.db")}
}

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database, applies pragmas, and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS epics (
			id                  TEXT PRIMARY KEY,
			title               TEXT NOT NULL,
			raw_text            TEXT NOT NULL,
			goals               TEXT NOT NULL DEFAULT '[]',
			constraints         TEXT NOT NULL DEFAULT '[]',
			acceptance_criteria TEXT NOT NULL DEFAULT '[]',
			stakeholders        TEXT NOT NULL DEFAULT '[]',
			status              TEXT NOT NULL,
			created_at          TEXT NOT NULL,
			updated_at          TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			epic_id      TEXT NOT NULL REFERENCES epics(id),
			status       TEXT NOT NULL,
			round        INTEGER NOT NULL DEFAULT 0,
			max_rounds   INTEGER NOT NULL,
			clarity      INTEGER NOT NULL DEFAULT 0,
			completeness INTEGER NOT NULL DEFAULT 0,
			ready        INTEGER NOT NULL DEFAULT 0,
			questions    TEXT NOT NULL DEFAULT '[]',
			answers      TEXT NOT NULL DEFAULT '[]',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_epic ON sessions(epic_id);

		CREATE TABLE IF NOT EXISTS premises (
			id               TEXT PRIMARY KEY,
			session_id       TEXT NOT NULL REFERENCES sessions(id),
			statement        TEXT NOT NULL,
			type             TEXT NOT NULL,
			confidence       REAL NOT NULL,
			source_answer_id TEXT NOT NULL,
			created_at       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_premises_session ON premises(session_id);

		CREATE TABLE IF NOT EXISTS contradictions (
			id          TEXT NOT NULL,
			session_id  TEXT NOT NULL REFERENCES sessions(id),
			premise_ids TEXT NOT NULL DEFAULT '[]',
			answer_ids  TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL,
			severity    TEXT NOT NULL,
			resolved    INTEGER NOT NULL DEFAULT 0,
			resolution  TEXT,
			resolved_at TEXT,
			created_at  TEXT NOT NULL,
			PRIMARY KEY (session_id, id)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// --- Epics ---

// SaveEpic upserts an epic by id.
func (s *Store) SaveEpic(ctx context.Context, e *epic.Epic) error {
	goals, _ := json.Marshal(e.Goals)
	constraints, _ := json.Marshal(e.Constraints)
	acceptance, _ := json.Marshal(e.AcceptanceCriteria)
	stakeholders, _ := json.Marshal(e.Stakeholders)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO epics (id, title, raw_text, goals, constraints,
			acceptance_criteria, stakeholders, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			goals = excluded.goals,
			constraints = excluded.constraints,
			acceptance_criteria = excluded.acceptance_criteria,
			stakeholders = excluded.stakeholders,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		e.ID, e.Title, e.RawText, string(goals), string(constraints),
		string(acceptance), string(stakeholders), string(e.Status),
		e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save epic %q: %w", e.ID, err)
	}
	return nil
}

// GetEpic loads an epic by id.
func (s *Store) GetEpic(ctx context.Context, id string) (*epic.Epic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, raw_text, goals, constraints, acceptance_criteria,
			stakeholders, status, created_at, updated_at
		FROM epics WHERE id = ?`, id)

	var e epic.Epic
	var goals, constraints, acceptance, stakeholders, status string
	err := row.Scan(&e.ID, &e.Title, &e.RawText, &goals, &constraints,
		&acceptance, &stakeholders, &status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("epic %q: %w", id, engine.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get epic %q: %w", id, err)
	}

	e.Status = epic.Status(status)
	for _, p := range []struct {
		data string
		dst  *[]string
	}{
		{goals, &e.Goals},
		{constraints, &e.Constraints},
		{acceptance, &e.AcceptanceCriteria},
		{stakeholders, &e.Stakeholders},
	} {
		if err := json.Unmarshal([]byte(p.data), p.dst); err != nil {
			return nil, fmt.Errorf("store: decode epic %q: %w", id, err)
		}
	}
	return &e, nil
}

// --- Sessions ---

// SaveSession atomically upserts the full session row, including the
// serialized question and answer lists.
func (s *Store) SaveSession(ctx context.Context, sess *session.Session) error {
	questions, err := json.Marshal(sess.Questions)
	if err != nil {
		return fmt.Errorf("store: encode questions: %w", err)
	}
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("store: encode answers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, epic_id, status, round, max_rounds,
			clarity, completeness, ready, questions, answers,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			round = excluded.round,
			max_rounds = excluded.max_rounds,
			clarity = excluded.clarity,
			completeness = excluded.completeness,
			ready = excluded.ready,
			questions = excluded.questions,
			answers = excluded.answers,
			updated_at = excluded.updated_at`,
		sess.ID, sess.EpicID, string(sess.Status), sess.Round, sess.MaxRounds,
		sess.ClarityScore, sess.CompletenessScore, boolInt(sess.ReadyForSpec),
		string(questions), string(answers), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save session %q: %w", sess.ID, err)
	}
	return nil
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.scanSession(s.db.QueryRowContext(ctx,
		sessionSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", id, engine.ErrNotFound)
	}
	return sess, err
}

// GetSessionByEpic loads the session for an epic, or (nil, nil) when no
// interrogation has started yet.
func (s *Store) GetSessionByEpic(ctx context.Context, epicID string) (*session.Session, error) {
	sess, err := s.scanSession(s.db.QueryRowContext(ctx,
		sessionSelect+` WHERE epic_id = ?`, epicID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sess, err
}

const sessionSelect = `
	SELECT id, epic_id, status, round, max_rounds, clarity, completeness,
		ready, questions, answers, created_at, updated_at
	FROM sessions`

func (s *Store) scanSession(row *sql.Row) (*session.Session, error) {
	var sess session.Session
	var status, questions, answers string
	var ready int
	err := row.Scan(&sess.ID, &sess.EpicID, &status, &sess.Round,
		&sess.MaxRounds, &sess.ClarityScore, &sess.CompletenessScore,
		&ready, &questions, &answers, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sess.Status = session.Status(status)
	sess.ReadyForSpec = ready != 0
	if err := json.Unmarshal([]byte(questions), &sess.Questions); err != nil {
		return nil, fmt.Errorf("store: decode questions for %q: %w", sess.ID, err)
	}
	if err := json.Unmarshal([]byte(answers), &sess.Answers); err != nil {
		return nil, fmt.Errorf("store: decode answers for %q: %w", sess.ID, err)
	}
	return &sess, nil
}

// --- Premises ---

// AddPremises appends premises; existing ids are left untouched since the
// premise ledger is append-only.
func (s *Store) AddPremises(ctx context.Context, sessionID string, premises []session.Premise) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range premises {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO premises (id, session_id, statement, type,
				confidence, source_answer_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			p.ID, sessionID, p.Statement, string(p.Type), p.Confidence,
			p.SourceAnswerID, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: add premise %q: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// ListPremises returns all premises for a session in insertion order.
func (s *Store) ListPremises(ctx context.Context, sessionID string) ([]session.Premise, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, statement, type, confidence, source_answer_id, created_at
		FROM premises WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list premises: %w", err)
	}
	defer rows.Close()

	var premises []session.Premise
	for rows.Next() {
		var p session.Premise
		var ptype string
		if err := rows.Scan(&p.ID, &p.Statement, &ptype, &p.Confidence,
			&p.SourceAnswerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan premise: %w", err)
		}
		p.Type = session.PremiseType(ptype)
		premises = append(premises, p)
	}
	return premises, rows.Err()
}

// --- Contradictions ---

// SaveContradictions upserts the full ledger for a session by id. The
// resolved flag only ever moves false → true here because the engine never
// hands back an un-resolved version of a resolved record.
func (s *Store) SaveContradictions(ctx context.Context, sessionID string, contradictions []session.Contradiction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	for _, c := range contradictions {
		premiseIDs, _ := json.Marshal(c.PremiseIDs)
		answerIDs, _ := json.Marshal(c.AnswerIDs)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contradictions (id, session_id, premise_ids,
				answer_ids, description, severity, resolved, resolution,
				resolved_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id, id) DO UPDATE SET
				resolved = excluded.resolved,
				resolution = excluded.resolution,
				resolved_at = excluded.resolved_at`,
			c.ID, sessionID, string(premiseIDs), string(answerIDs),
			c.Description, string(c.Severity), boolInt(c.Resolved),
			nullable(c.Resolution), nullable(c.ResolvedAt), c.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: save contradiction %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// ListContradictions returns the full ledger for a session.
func (s *Store) ListContradictions(ctx context.Context, sessionID string) ([]session.Contradiction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, premise_ids, answer_ids, description, severity,
			resolved, resolution, resolved_at, created_at
		FROM contradictions WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list contradictions: %w", err)
	}
	defer rows.Close()

	var out []session.Contradiction
	for rows.Next() {
		var c session.Contradiction
		var premiseIDs, answerIDs, severity string
		var resolved int
		var resolution, resolvedAt sql.NullString
		if err := rows.Scan(&c.ID, &premiseIDs, &answerIDs, &c.Description,
			&severity, &resolved, &resolution, &resolvedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan contradiction: %w", err)
		}
		c.Severity = session.Severity(severity)
		c.Resolved = resolved != 0
		c.Resolution = resolution.String
		c.ResolvedAt = resolvedAt.String
		if err := json.Unmarshal([]byte(premiseIDs), &c.PremiseIDs); err != nil {
			return nil, fmt.Errorf("store: decode contradiction %q: %w", c.ID, err)
		}
		if err := json.Unmarshal([]byte(answerIDs), &c.AnswerIDs); err != nil {
			return nil, fmt.Errorf("store: decode contradiction %q: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Helpers ---

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
