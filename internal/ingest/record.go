// Package ingest turns CSV transaction exports into validated drafts.
//
// The package knows nothing about users or storage: it reads records, runs
// each one through Validate, and hands back the drafts that passed in input
// order. Callers attach ownership and persist them.
package ingest

import (
	"time"

	"smartspend/internal/models"

	"github.com/shopspring/decimal"
)

// RawRecord is one CSV data row keyed by column name.
type RawRecord struct {
	Description string
	Amount      string
	Type        string
	Date        string
	Notes       string
	Category    string
}

// Draft is a validated transaction that has not been persisted yet.
type Draft struct {
	Description   string
	Amount        decimal.Decimal
	Kind          models.TransactionType
	OccurredOn    time.Time
	Notes         *string
	CategoryLabel *string
}

// Reason tags the outcome of validating one record.
type Reason string

const (
	Accepted      Reason = "accepted"
	MissingField  Reason = "missing_field"
	InvalidAmount Reason = "invalid_amount"
	InvalidType   Reason = "invalid_type"
	InvalidDate   Reason = "invalid_date"
)

// Result is either an accepted Draft or a rejection Reason with a short detail.
type Result struct {
	Draft  Draft
	Reason Reason
	Detail string
}

// OK reports whether the record was accepted.
func (r Result) OK() bool { return r.Reason == Accepted }

// Rejection describes a dropped data row. Line is the 1-based line in the source.
type Rejection struct {
	Line   int    `json:"line"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
}

// Report is the full result of one ingest call.
type Report struct {
	Drafts     []Draft
	Rejections []Rejection
	RowsRead   int
}
