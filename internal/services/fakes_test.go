package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smartspend/internal/events"
	"smartspend/internal/models"
	"smartspend/internal/repository"
)

// fakeLedgerStore is an in-memory LedgerStore. createFn, when set, can fail a write.
type fakeLedgerStore struct {
	mu         sync.Mutex
	categories []models.Category
	saved      []models.Transaction
	calls      int
	createFn   func(call int, tx *models.Transaction) error
	findErr    error
}

func (f *fakeLedgerStore) FindCategoriesByUser(_ context.Context, userID string) ([]models.Category, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.Category
	for _, c := range f.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) CreateTransaction(_ context.Context, tx *models.Transaction) (*models.Transaction, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.createFn != nil {
		if err := f.createFn(call, tx); err != nil {
			return nil, fmt.Errorf("%w: create transaction: %v", repository.ErrStorage, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	tx.ID = fmt.Sprintf("tx-%03d", call)
	tx.CreatedAt = time.Now()
	f.saved = append(f.saved, *tx)
	return tx, nil
}

func (f *fakeLedgerStore) FindTransactionsByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, tx := range f.saved {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedgerStore) savedDescriptions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.saved))
	for _, tx := range f.saved {
		out = append(out, tx.Description)
	}
	return out
}

type fakeArchiver struct {
	location string
	err      error
	got      []byte
}

func (a *fakeArchiver) Archive(_ context.Context, _, _ string, data []byte) (string, error) {
	a.got = data
	return a.location, a.err
}

type recordingPublisher struct {
	published []events.ImportCompleted
	err       error
}

func (p *recordingPublisher) PublishImportCompleted(_ context.Context, e events.ImportCompleted) error {
	p.published = append(p.published, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	statuses  []string
	imported  int
	failed    int
	rejected  int
	dashboard int
}

func (m *recordingMetrics) ObserveImport(status string, imported, failed, rejected int, _ time.Duration) {
	m.statuses = append(m.statuses, status)
	m.imported += imported
	m.failed += failed
	m.rejected += rejected
}

func (m *recordingMetrics) ObserveDashboard() { m.dashboard++ }
