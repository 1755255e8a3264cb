// Package sqlite persists Proof of Play state in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
	"github.com/luca-patrignani/proof-of-play/store"
)

// Store implements dispatch.State on SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes transitions to prevent SQLITE_BUSY
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		account TEXT PRIMARY KEY,
		balance TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		prev_hash TEXT NOT NULL,
		hash TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		kind TEXT NOT NULL,
		player TEXT NOT NULL,
		entropy INTEGER NOT NULL,
		minted TEXT NOT NULL,
		reason TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_tx ON events(tx_hash);
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := latest(ctx, tx); errors.Is(err, sql.ErrNoRows) {
		if err := insertBlock(ctx, tx, ledger.Genesis(time.Now().Unix())); err != nil {
			return fmt.Errorf("insert genesis: %w", err)
		}
	} else if err != nil {
		return err
	}
	return tx.Commit()
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func balanceOf(ctx context.Context, q queryer, account pop.AccountID) (pop.Balance, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE account = ?`, string(account)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan balance: %w", err)
	}
	return store.ParseBalance(raw)
}

func setBalance(ctx context.Context, q queryer, account pop.AccountID, b pop.Balance) error {
	query := `
	INSERT INTO accounts (account, balance) VALUES (?, ?)
	ON CONFLICT(account) DO UPDATE SET balance = excluded.balance`
	if _, err := q.ExecContext(ctx, query, string(account), store.FormatBalance(b)); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

const blockColumns = `seq, timestamp, prev_hash, hash, tx_hash, kind, player, entropy, minted, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(row scanner) (ledger.Block, error) {
	var (
		b              ledger.Block
		kind, player   string
		entropy        int64
		minted, reason string
	)
	if err := row.Scan(&b.Index, &b.Timestamp, &b.PrevHash, &b.Hash, &b.TxHash, &kind, &player, &entropy, &minted, &reason); err != nil {
		return ledger.Block{}, err
	}
	m, err := store.ParseBalance(minted)
	if err != nil {
		return ledger.Block{}, err
	}
	r, err := store.ParseReason(reason)
	if err != nil {
		return ledger.Block{}, err
	}
	b.Event = pop.Event{
		Kind:    pop.EventKind(kind),
		Player:  pop.AccountID(player),
		Entropy: uint32(entropy),
		Minted:  m,
		Reason:  r,
	}
	return b, nil
}

func latest(ctx context.Context, q queryer) (ledger.Block, error) {
	row := q.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM events ORDER BY seq DESC LIMIT 1`)
	return scanBlock(row)
}

func insertBlock(ctx context.Context, q queryer, b ledger.Block) error {
	query := `INSERT INTO events (` + blockColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := q.ExecContext(ctx, query,
		b.Index, b.Timestamp, b.PrevHash, b.Hash, b.TxHash,
		string(b.Event.Kind), string(b.Event.Player), int64(b.Event.Entropy),
		store.FormatBalance(b.Event.Minted), b.Event.Reason.String(),
	)
	if err != nil {
		return fmt.Errorf("insert block %d: %w", b.Index, err)
	}
	return nil
}

func appendEvents(ctx context.Context, q queryer, txHash string, events []pop.Event) ([]ledger.Block, error) {
	prev, err := latest(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("read latest block: %w", err)
	}
	blocks := make([]ledger.Block, 0, len(events))
	now := time.Now().Unix()
	for _, e := range events {
		b := ledger.Next(prev, now, txHash, e)
		if err := insertBlock(ctx, q, b); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		prev = b
	}
	return blocks, nil
}

// Transition runs fn on an overlay and writes its credits and records in one
// SQL transaction.
func (s *Store) Transition(ctx context.Context, txHash string, fn ledger.TransitionFunc) ([]ledger.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	o := ledger.NewOverlay(func(a pop.AccountID) (pop.Balance, error) {
		return balanceOf(ctx, tx, a)
	})
	if err := fn(o, o); err != nil {
		return nil, err
	}

	for _, c := range o.Credits() {
		current, err := balanceOf(ctx, tx, c.Account)
		if err != nil {
			return nil, err
		}
		if err := setBalance(ctx, tx, c.Account, current+c.Amount); err != nil {
			return nil, err
		}
	}
	blocks, err := appendEvents(ctx, tx, txHash, o.Events())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return blocks, nil
}

// Record appends a single record.
func (s *Store) Record(ctx context.Context, txHash string, e pop.Event) (ledger.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Block{}, fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	blocks, err := appendEvents(ctx, tx, txHash, []pop.Event{e})
	if err != nil {
		return ledger.Block{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Block{}, fmt.Errorf("commit record: %w", err)
	}
	return blocks[0], nil
}

// BalanceOf returns the committed balance of account.
func (s *Store) BalanceOf(ctx context.Context, account pop.AccountID) (pop.Balance, error) {
	return balanceOf(ctx, s.db, account)
}

// Events returns up to limit blocks starting at index from. A non-positive
// limit returns every remaining block.
func (s *Store) Events(ctx context.Context, from, limit int) ([]ledger.Block, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM events WHERE seq >= ? ORDER BY seq ASC LIMIT ?`, from, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	blocks := []ledger.Block{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// Genesis sets initial balances. It fails once any record beyond genesis
// exists.
func (s *Store) Genesis(ctx context.Context, balances map[pop.AccountID]pop.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin genesis: %w", err)
	}
	defer tx.Rollback()

	head, err := latest(ctx, tx)
	if err != nil {
		return fmt.Errorf("read latest block: %w", err)
	}
	if head.Index > 0 {
		return fmt.Errorf("genesis after first transition")
	}
	for a, b := range balances {
		if err := setBalance(ctx, tx, a, b); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Verify re-checks the hash chain of every stored record.
func (s *Store) Verify(ctx context.Context) error {
	blocks, err := s.Events(ctx, 0, 0)
	if err != nil {
		return err
	}
	return ledger.VerifyChain(blocks)
}
