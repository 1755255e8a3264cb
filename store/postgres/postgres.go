// Package postgres persists Proof of Play state in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
	"github.com/luca-patrignani/proof-of-play/store"
)

// Store implements dispatch.State on PostgreSQL.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open connects to dsn, configures the pool and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&Account{}, &EventRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate database schema: %w", err)
	}

	s := &Store{db: db}
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := latest(tx); errors.Is(err, gorm.ErrRecordNotFound) {
			return insertBlock(tx, ledger.Genesis(time.Now().Unix()))
		} else if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("insert genesis: %w", err)
	}
	return s, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func balanceOf(tx *gorm.DB, account pop.AccountID) (pop.Balance, error) {
	var a Account
	result := tx.First(&a, "address = ?", string(account))
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("query account: %w", result.Error)
	}
	return store.ParseBalance(a.Balance)
}

func setBalance(tx *gorm.DB, account pop.AccountID, b pop.Balance) error {
	a := Account{Address: string(account), Balance: store.FormatBalance(b)}
	if err := tx.Save(&a).Error; err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func toBlock(r EventRecord) (ledger.Block, error) {
	minted, err := store.ParseBalance(r.Minted)
	if err != nil {
		return ledger.Block{}, err
	}
	reason, err := store.ParseReason(r.Reason)
	if err != nil {
		return ledger.Block{}, err
	}
	return ledger.Block{
		Index:     r.Seq,
		Timestamp: r.Timestamp,
		PrevHash:  r.PrevHash,
		Hash:      r.Hash,
		TxHash:    r.TxHash,
		Event: pop.Event{
			Kind:    pop.EventKind(r.Kind),
			Player:  pop.AccountID(r.Player),
			Entropy: uint32(r.Entropy),
			Minted:  minted,
			Reason:  reason,
		},
	}, nil
}

func latest(tx *gorm.DB) (ledger.Block, error) {
	var r EventRecord
	if err := tx.Order("seq desc").First(&r).Error; err != nil {
		return ledger.Block{}, err
	}
	return toBlock(r)
}

func insertBlock(tx *gorm.DB, b ledger.Block) error {
	r := EventRecord{
		Seq:       b.Index,
		Timestamp: b.Timestamp,
		PrevHash:  b.PrevHash,
		Hash:      b.Hash,
		TxHash:    b.TxHash,
		Kind:      string(b.Event.Kind),
		Player:    string(b.Event.Player),
		Entropy:   int64(b.Event.Entropy),
		Minted:    store.FormatBalance(b.Event.Minted),
		Reason:    b.Event.Reason.String(),
	}
	if err := tx.Create(&r).Error; err != nil {
		return fmt.Errorf("insert block %d: %w", b.Index, err)
	}
	return nil
}

func appendEvents(tx *gorm.DB, txHash string, events []pop.Event) ([]ledger.Block, error) {
	prev, err := latest(tx)
	if err != nil {
		return nil, fmt.Errorf("read latest block: %w", err)
	}
	now := time.Now().Unix()
	blocks := make([]ledger.Block, 0, len(events))
	for _, e := range events {
		b := ledger.Next(prev, now, txHash, e)
		if err := insertBlock(tx, b); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		prev = b
	}
	return blocks, nil
}

// Transition runs fn on an overlay and writes its credits and records in one
// database transaction.
func (s *Store) Transition(ctx context.Context, txHash string, fn ledger.TransitionFunc) ([]ledger.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocks []ledger.Block
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o := ledger.NewOverlay(func(a pop.AccountID) (pop.Balance, error) {
			return balanceOf(tx, a)
		})
		if err := fn(o, o); err != nil {
			return err
		}
		for _, c := range o.Credits() {
			current, err := balanceOf(tx, c.Account)
			if err != nil {
				return err
			}
			if err := setBalance(tx, c.Account, current+c.Amount); err != nil {
				return err
			}
		}
		var err error
		blocks, err = appendEvents(tx, txHash, o.Events())
		return err
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// Record appends a single record.
func (s *Store) Record(ctx context.Context, txHash string, e pop.Event) (ledger.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var block ledger.Block
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		blocks, err := appendEvents(tx, txHash, []pop.Event{e})
		if err != nil {
			return err
		}
		block = blocks[0]
		return nil
	})
	return block, err
}

func (s *Store) BalanceOf(ctx context.Context, account pop.AccountID) (pop.Balance, error) {
	return balanceOf(s.db.WithContext(ctx), account)
}

// Events returns up to limit blocks starting at index from.
func (s *Store) Events(ctx context.Context, from, limit int) ([]ledger.Block, error) {
	q := s.db.WithContext(ctx).Where("seq >= ?", from).Order("seq asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var records []EventRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	blocks := make([]ledger.Block, 0, len(records))
	for _, r := range records {
		b, err := toBlock(r)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// Genesis sets initial balances before the first transition.
func (s *Store) Genesis(ctx context.Context, balances map[pop.AccountID]pop.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		head, err := latest(tx)
		if err != nil {
			return err
		}
		if head.Index > 0 {
			return fmt.Errorf("genesis after first transition")
		}
		for a, b := range balances {
			if err := setBalance(tx, a, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// Verify re-checks the hash chain of every stored record.
func (s *Store) Verify(ctx context.Context) error {
	blocks, err := s.Events(ctx, 0, 0)
	if err != nil {
		return err
	}
	return ledger.VerifyChain(blocks)
}
