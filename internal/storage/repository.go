// Package storage maps domain entities onto document store collections.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"bottega/internal/core"
	"bottega/internal/docstore"
	"bottega/internal/log"
)

var ErrNotFound = docstore.ErrNotFound

// Credentials is the stored login secret of a user.
type Credentials struct {
	UserID       string
	PasswordHash string
}

// Repository is the typed view over a docstore.Store.
type Repository struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewRepository(store docstore.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:  store,
		logger: logger.With(log.FieldComponent, log.ComponentStorage),
	}
}

// Ping checks that the underlying store is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Sales

func (r *Repository) AddSale(ctx context.Context, s core.Sale, createdBy string) (string, error) {
	fields := encodeSale(s)
	fields[fieldCreatedBy] = createdBy
	id, err := r.store.Add(ctx, docstore.CollectionSales, fields)
	if err != nil {
		return "", fmt.Errorf("add sale: %w", err)
	}
	return id, nil
}

func (r *Repository) GetSale(ctx context.Context, id string) (core.Sale, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionSales, id)
	if err != nil {
		return core.Sale{}, fmt.Errorf("get sale %s: %w", id, err)
	}
	return decodeSale(doc), nil
}

// ListSales returns every sale, newest sale date first.
func (r *Repository) ListSales(ctx context.Context) ([]core.Sale, error) {
	docs, err := r.store.List(ctx, docstore.CollectionSales)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	sales := make([]core.Sale, 0, len(docs))
	for _, d := range docs {
		sales = append(sales, decodeSale(d))
	}
	slices.SortStableFunc(sales, func(a, b core.Sale) int {
		if c := strings.Compare(b.SaleDate, a.SaleDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sales, nil
}

func (r *Repository) DeleteSale(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, docstore.CollectionSales, id); err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	return nil
}

func (r *Repository) UpdateSaleStatus(ctx context.Context, id string, status core.Status) error {
	err := r.store.Update(ctx, docstore.CollectionSales, id, docstore.Fields{
		fieldStatus:   string(status),
		fieldSyncedAt: nil,
	})
	if err != nil {
		return fmt.Errorf("update sale %s status: %w", id, err)
	}
	return nil
}

// Expenses

func (r *Repository) AddExpense(ctx context.Context, e core.Expense, createdBy string) (string, error) {
	fields := encodeExpense(e)
	fields[fieldCreatedBy] = createdBy
	id, err := r.store.Add(ctx, docstore.CollectionExpenses, fields)
	if err != nil {
		return "", fmt.Errorf("add expense: %w", err)
	}
	return id, nil
}

func (r *Repository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionExpenses, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return decodeExpense(doc), nil
}

// ListExpenses returns every expense, newest date first.
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	docs, err := r.store.List(ctx, docstore.CollectionExpenses)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, 0, len(docs))
	for _, d := range docs {
		expenses = append(expenses, decodeExpense(d))
	}
	slices.SortStableFunc(expenses, func(a, b core.Expense) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return expenses, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, docstore.CollectionExpenses, id); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return nil
}

// Calendar tasks

func (r *Repository) AddTask(ctx context.Context, t core.Task) (string, error) {
	id, err := r.store.Add(ctx, docstore.CollectionTasks, encodeTask(t))
	if err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	return id, nil
}

func (r *Repository) GetTask(ctx context.Context, id string) (core.Task, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionTasks, id)
	if err != nil {
		return core.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return decodeTask(doc), nil
}

func (r *Repository) ListTasks(ctx context.Context) ([]core.Task, error) {
	docs, err := r.store.List(ctx, docstore.CollectionTasks)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]core.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, decodeTask(d))
	}
	return tasks, nil
}

// UpdateTask rewrites the editable fields of a task, leaving done untouched.
func (r *Repository) UpdateTask(ctx context.Context, t core.Task) error {
	fields := encodeTask(t)
	delete(fields, fieldDone)
	if err := r.store.Update(ctx, docstore.CollectionTasks, t.ID, fields); err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return nil
}

func (r *Repository) SetTaskDone(ctx context.Context, id string, done bool) error {
	if err := r.store.Update(ctx, docstore.CollectionTasks, id, docstore.Fields{fieldDone: done}); err != nil {
		return fmt.Errorf("set task %s done: %w", id, err)
	}
	return nil
}

func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, docstore.CollectionTasks, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// Users

func (r *Repository) PutUser(ctx context.Context, u core.User) error {
	if err := r.store.Set(ctx, docstore.CollectionUsers, u.ID, encodeUser(u)); err != nil {
		return fmt.Errorf("put user %s: %w", u.ID, err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionUsers, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return decodeUser(doc), nil
}

// FindUserByEmail matches case-insensitively. It returns ErrNotFound when no
// user has the address.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (core.User, error) {
	docs, err := r.store.Find(ctx, docstore.CollectionUsers, fieldEmailKey, emailKey(email))
	if err != nil {
		return core.User{}, fmt.Errorf("find user by email: %w", err)
	}
	if len(docs) == 0 {
		return core.User{}, ErrNotFound
	}
	return decodeUser(docs[0]), nil
}

func (r *Repository) PutCredentials(ctx context.Context, c Credentials) error {
	err := r.store.Set(ctx, docstore.CollectionCredentials, c.UserID, docstore.Fields{
		fieldPasswordHash: c.PasswordHash,
	})
	if err != nil {
		return fmt.Errorf("put credentials %s: %w", c.UserID, err)
	}
	return nil
}

func (r *Repository) GetCredentials(ctx context.Context, userID string) (Credentials, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionCredentials, userID)
	if err != nil {
		return Credentials{}, fmt.Errorf("get credentials %s: %w", userID, err)
	}
	return Credentials{UserID: userID, PasswordHash: doc.Fields.String(fieldPasswordHash)}, nil
}

// Sync bookkeeping

func collectionFor(kind core.Kind) (string, error) {
	switch kind {
	case core.KindSale:
		return docstore.CollectionSales, nil
	case core.KindExpense:
		return docstore.CollectionExpenses, nil
	}
	return "", core.ErrInvalidKind
}

// MarkSynced records that a sale or expense reached the spreadsheet mirror.
func (r *Repository) MarkSynced(ctx context.Context, kind core.Kind, id string, at time.Time) error {
	collection, err := collectionFor(kind)
	if err != nil {
		return err
	}
	err = r.store.Update(ctx, collection, id, docstore.Fields{
		fieldSyncedAt: at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("mark %s %s synced: %w", kind, id, err)
	}
	return nil
}

// IsSynced reports whether the record has been mirrored since its last change.
func (r *Repository) IsSynced(ctx context.Context, kind core.Kind, id string) (bool, error) {
	collection, err := collectionFor(kind)
	if err != nil {
		return false, err
	}
	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		return false, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return doc.Fields.String(fieldSyncedAt) != "", nil
}

// ListUnsynced returns up to limit ids of records of kind never mirrored, or
// changed since their last mirror.
func (r *Repository) ListUnsynced(ctx context.Context, kind core.Kind, limit int) ([]string, error) {
	collection, err := collectionFor(kind)
	if err != nil {
		return nil, err
	}
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list unsynced %s: %w", kind, err)
	}
	var ids []string
	for _, d := range docs {
		if d.Fields.String(fieldSyncedAt) != "" {
			continue
		}
		ids = append(ids, d.ID)
	}
	slices.Sort(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	if len(ids) > 0 {
		r.logger.DebugContext(ctx, "Found unsynced records", log.FieldKind, string(kind), "count", len(ids))
	}
	return ids, nil
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
