package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	errSQLUnsupported = errors.New("in-memory store does not execute sql")
	errForeignTx      = errors.New("transaction does not belong to this store")
)

type storeData struct {
	users         map[uuid.UUID]domain.User
	credits       []domain.CreditTransaction
	images        map[uuid.UUID]domain.GeneratedImage
	videos        map[uuid.UUID]domain.GeneratedVideo
	jobs          map[uuid.UUID]domain.Job
	models        map[uuid.UUID]domain.TrainedModel
	billingEvents map[string]string
}

func newStoreData() storeData {
	return storeData{
		users:         make(map[uuid.UUID]domain.User),
		images:        make(map[uuid.UUID]domain.GeneratedImage),
		videos:        make(map[uuid.UUID]domain.GeneratedVideo),
		jobs:          make(map[uuid.UUID]domain.Job),
		models:        make(map[uuid.UUID]domain.TrainedModel),
		billingEvents: make(map[string]string),
	}
}

func (d storeData) clone() storeData {
	c := newStoreData()
	for k, v := range d.users {
		c.users[k] = v
	}
	c.credits = append(c.credits, d.credits...)
	for k, v := range d.images {
		c.images[k] = v
	}
	for k, v := range d.videos {
		c.videos[k] = v
	}
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	for k, v := range d.models {
		c.models[k] = v
	}
	for k, v := range d.billingEvents {
		c.billingEvents[k] = v
	}
	return c
}

// Store хранилище в памяти процесса. Транзакция держит эксклюзивную блокировку
// всего хранилища, rollback восстанавливает снимок, сделанный в BeginTx.
type Store struct {
	mu   sync.Mutex
	data storeData
}

func NewStore() *Store {
	return &Store{data: newStoreData()}
}

// memTx транзакция Store, Executor методы не поддерживаются
type memTx struct {
	store    *Store
	snapshot storeData
	done     bool
}

func (t *memTx) Get(context.Context, interface{}, string, ...interface{}) error {
	return errSQLUnsupported
}

func (t *memTx) Select(context.Context, interface{}, string, ...interface{}) error {
	return errSQLUnsupported
}

func (t *memTx) Exec(context.Context, string, ...interface{}) error {
	return errSQLUnsupported
}

func (t *memTx) ExecWithResult(context.Context, string, ...interface{}) (int64, error) {
	return 0, errSQLUnsupported
}

func (t *memTx) NamedExec(context.Context, string, interface{}) error {
	return errSQLUnsupported
}

func (t *memTx) NamedExecWithResult(context.Context, string, interface{}) (int64, error) {
	return 0, errSQLUnsupported
}

func (t *memTx) QueryRow(context.Context, string, ...interface{}) *sqlx.Row {
	return nil
}

func (t *memTx) NamedQuery(context.Context, string, interface{}) (*sqlx.Rows, error) {
	return nil, errSQLUnsupported
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	t.store.data = t.snapshot
	t.store.mu.Unlock()
	return nil
}

// BeginTx блокирует хранилище до Commit/Rollback
func (s *Store) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &memTx{store: s, snapshot: s.data.clone()}, nil
}

func (s *Store) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// own проверяет, что tx открыта этим хранилищем и ещё не завершена
func (s *Store) own(tx persistence.Transaction) error {
	mtx, ok := tx.(*memTx)
	if !ok || mtx.store != s {
		return errForeignTx
	}
	if mtx.done {
		return errors.New("transaction already finished")
	}
	return nil
}

// read выполняет fn под блокировкой вне транзакции
func (s *Store) read(fn func(d *storeData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// inTx выполняет fn внутри уже открытой транзакции (блокировка уже взята)
func (s *Store) inTx(tx persistence.Transaction, fn func(d *storeData) error) error {
	if err := s.own(tx); err != nil {
		return err
	}
	return fn(&s.data)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func notFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, domain.ErrNotFound)
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}
