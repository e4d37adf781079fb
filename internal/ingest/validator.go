package ingest

import (
	"strings"
	"time"
	"unicode/utf8"

	"smartspend/internal/models"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// Validate maps one raw record to a draft or a tagged rejection. Checks run
// in a fixed order (presence, amount, type, date) and the first failure wins.
// Zero and negative amounts are accepted.
func Validate(rec RawRecord) Result {
	description := strings.TrimSpace(rec.Description)
	amount := strings.TrimSpace(rec.Amount)
	kind := strings.TrimSpace(rec.Type)
	date := strings.TrimSpace(rec.Date)

	for _, f := range []struct{ name, value string }{
		{"description", description},
		{"amount", amount},
		{"type", kind},
		{"date", date},
	} {
		if f.value == "" {
			return reject(MissingField, f.name+" is required")
		}
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return reject(InvalidAmount, "amount "+quote(amount)+" is not a number")
	}

	txType := models.TransactionType(strings.ToLower(kind))
	if !txType.Valid() {
		return reject(InvalidType, "type "+quote(kind)+" must be income or expense")
	}

	occurredOn, ok := parseDate(date)
	if !ok {
		return reject(InvalidDate, "date "+quote(date)+" is not a recognised date")
	}

	return Result{
		Reason: Accepted,
		Draft: Draft{
			Description:   description,
			Amount:        value,
			Kind:          txType,
			OccurredOn:    occurredOn,
			Notes:         optional(rec.Notes),
			CategoryLabel: optional(rec.Category),
		},
	}
}

// parseDate returns the calendar date of s at UTC midnight.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func reject(reason Reason, detail string) Result {
	return Result{Reason: reason, Detail: detail}
}

// quote truncates by rune so the detail stays valid UTF-8.
func quote(s string) string {
	const max = 40
	if utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max]) + "..."
	}
	return `"` + s + `"`
}
