package services

import (
	"bytes"
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"smartspend/internal/archive"
	apperrors "smartspend/internal/errors"
	"smartspend/internal/events"
	"smartspend/internal/ingest"
	"smartspend/internal/logger"
	"smartspend/internal/models"
	"smartspend/internal/repository"
)

// Import statuses reported to ImportMetrics.
const (
	ImportStatusSuccess     = "success"
	ImportStatusPartial     = "partial"
	ImportStatusNoValidRows = "no_valid_rows"
	ImportStatusMalformed   = "malformed"
	ImportStatusError       = "error"
)

// storageFailureReason is the client-facing reason for a row that could not be saved.
const storageFailureReason = "failed to save transaction"

// ImportMetrics records import outcomes.
type ImportMetrics interface {
	ObserveImport(status string, imported, failed, rejected int, elapsed time.Duration)
}

// ImportDeps collects the collaborators of the import service. Only Store is
// required; the rest fall back to no-op or default implementations.
type ImportDeps struct {
	Store     repository.LedgerStore
	Ingestor  *ingest.Ingestor
	Archiver  archive.Archiver
	Publisher events.Publisher
	Metrics   ImportMetrics
	Resolvers ResolverFactory
	// Workers bounds concurrent row writes. Values below 1 mean 1.
	Workers int
}

// importService persists CSV drafts with a best-effort policy: every row is
// an independent write and one row's failure never affects another.
type importService struct {
	store     repository.LedgerStore
	ingestor  *ingest.Ingestor
	archiver  archive.Archiver
	publisher events.Publisher
	metrics   ImportMetrics
	resolvers ResolverFactory
	workers   int
}

// NewImportService creates a new ImportServicer.
func NewImportService(deps ImportDeps) ImportServicer {
	s := &importService{
		store:     deps.Store,
		ingestor:  deps.Ingestor,
		archiver:  deps.Archiver,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		resolvers: deps.Resolvers,
		workers:   deps.Workers,
	}
	if s.ingestor == nil {
		s.ingestor = ingest.NewIngestor(ingest.DefaultMaxBytes)
	}
	if s.archiver == nil {
		s.archiver = archive.Noop{}
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.resolvers == nil {
		s.resolvers = NewExactNameResolver
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

type rowResult struct {
	attempted   bool
	transaction *models.Transaction
	err         error
}

// ImportBatch persists drafts for userID in input order. An empty batch is
// rejected before anything is written. Cancelling ctx stops new rows from
// being scheduled; the attempted rows always form a prefix of drafts and the
// outcome covers only those.
func (s *importService) ImportBatch(ctx context.Context, userID string, drafts []ingest.Draft) (*ImportOutcome, error) {
	if len(drafts) == 0 {
		return nil, apperrors.ErrNoValidRows
	}

	log := logger.Get()
	categories, err := s.store.FindCategoriesByUser(ctx, userID)
	if err != nil {
		// Rows are still written, just without categories.
		log.Warnw("category lookup failed, importing uncategorised",
			"user_id", userID,
			"error", err,
		)
		categories = nil
	}
	resolver := s.resolvers(categories)

	pending := make([]*models.Transaction, len(drafts))
	unmatched := newUnmatchedTracker(resolver)
	for i, d := range drafts {
		tx := &models.Transaction{
			UserID:      userID,
			Type:        d.Kind,
			Amount:      d.Amount,
			Description: d.Description,
			Notes:       d.Notes,
			Date:        d.OccurredOn,
		}
		if d.CategoryLabel != nil {
			tx.CategoryID = resolver.Resolve(*d.CategoryLabel, d.Kind)
			if tx.CategoryID == nil {
				unmatched.add(*d.CategoryLabel, d.Kind)
			}
		}
		pending[i] = tx
	}

	results := make([]rowResult, len(drafts))
	// A row that has started is written to completion even if ctx is cancelled.
	writeCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			saved, err := s.store.CreateTransaction(writeCtx, pending[i])
			results[i] = rowResult{attempted: true, transaction: saved, err: err}
			return nil
		})
	}
	_ = g.Wait()

	outcome := &ImportOutcome{
		Failures:            []ImportFailure{},
		Imported:            []models.Transaction{},
		UnmatchedCategories: unmatched.list(),
		Rejections:          []ingest.Rejection{},
	}
	for i, r := range results {
		if !r.attempted {
			continue
		}
		outcome.TotalRowsParsed++
		if r.err != nil {
			log.Errorw("failed to import row",
				"user_id", userID,
				"row", i+1,
				"description", drafts[i].Description,
				"error", r.err,
			)
			outcome.Failures = append(outcome.Failures, ImportFailure{
				Row:    i + 1,
				Draft:  drafts[i],
				Reason: failureReason(r.err),
				Err:    r.err,
			})
			continue
		}
		outcome.SuccessCount++
		outcome.Imported = append(outcome.Imported, *r.transaction)
	}

	if outcome.TotalRowsParsed < len(drafts) {
		log.Warnw("import cancelled before completion",
			"user_id", userID,
			"attempted", outcome.TotalRowsParsed,
			"total", len(drafts),
		)
	}
	return outcome, nil
}

func failureReason(err error) string {
	if errors.Is(err, repository.ErrStorage) {
		return storageFailureReason
	}
	return "unexpected error"
}

// ImportCSV runs the upload pipeline: archive the raw bytes, ingest them,
// persist the drafts and announce the result. Archiving and publishing are
// best effort; only malformed input or an empty result fails the call.
func (s *importService) ImportCSV(ctx context.Context, userID, filename string, data []byte) (*ImportOutcome, error) {
	start := time.Now()
	log := logger.Get()

	location, err := s.archiver.Archive(ctx, userID, filename, data)
	if err != nil {
		log.Warnw("failed to archive upload", "user_id", userID, "filename", filename, "error", err)
		location = ""
	}

	report, err := s.ingestor.IngestReader(bytes.NewReader(data))
	if err != nil {
		s.observe(ImportStatusMalformed, 0, 0, 0, start)
		switch {
		case errors.Is(err, ingest.ErrInputTooLarge):
			return nil, apperrors.Wrap(apperrors.ErrFileTooLarge, err)
		case errors.Is(err, ingest.ErrMalformedInput):
			return nil, apperrors.Wrap(apperrors.ErrMalformedCSV, err)
		default:
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	outcome, err := s.ImportBatch(ctx, userID, report.Drafts)
	if err != nil {
		status := ImportStatusError
		if errors.Is(err, apperrors.ErrNoValidRows) {
			status = ImportStatusNoValidRows
		}
		s.observe(status, 0, 0, len(report.Rejections), start)
		return nil, err
	}
	outcome.StorageLocation = location
	outcome.Rejections = report.Rejections
	outcome.RowsRead = report.RowsRead

	status := ImportStatusSuccess
	if len(outcome.Failures) > 0 || len(outcome.Rejections) > 0 {
		status = ImportStatusPartial
	}
	s.observe(status, outcome.SuccessCount, len(outcome.Failures), len(outcome.Rejections), start)

	event := events.NewImportCompleted(userID, filename, outcome.SuccessCount, len(outcome.Failures), len(outcome.Rejections), location)
	if err := s.publisher.PublishImportCompleted(ctx, event); err != nil {
		log.Warnw("failed to publish import event", "user_id", userID, "error", err)
	}

	log.Infow("CSV import finished",
		"user_id", userID,
		"filename", filename,
		"rows_read", outcome.RowsRead,
		"imported", outcome.SuccessCount,
		"failed", len(outcome.Failures),
		"skipped", len(outcome.Rejections),
		"duration", time.Since(start),
	)
	return outcome, nil
}

func (s *importService) observe(status string, imported, failed, rejected int, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveImport(status, imported, failed, rejected, time.Since(start))
	}
}

// unmatchedTracker collects unresolved labels per kind in first-seen order.
type unmatchedTracker struct {
	resolver CategoryResolver
	index    map[string]int
	items    []UnmatchedCategory
}

func newUnmatchedTracker(resolver CategoryResolver) *unmatchedTracker {
	return &unmatchedTracker{resolver: resolver, index: map[string]int{}}
}

func (u *unmatchedTracker) add(label string, kind models.TransactionType) {
	key := string(kind) + "\x00" + label
	if i, ok := u.index[key]; ok {
		u.items[i].Rows++
		return
	}
	item := UnmatchedCategory{Label: label, Kind: kind, Rows: 1}
	if sg, ok := u.resolver.(CategorySuggester); ok {
		item.Suggestion = sg.Suggest(label, kind)
	}
	u.index[key] = len(u.items)
	u.items = append(u.items, item)
}

func (u *unmatchedTracker) list() []UnmatchedCategory {
	if u.items == nil {
		return []UnmatchedCategory{}
	}
	return u.items
}
