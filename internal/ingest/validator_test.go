package ingest

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"smartspend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() RawRecord {
	return RawRecord{
		Description: "Grocery",
		Amount:      "120.50",
		Type:        "expense",
		Date:        "2025-03-15",
		Notes:       "Monthly groceries",
		Category:    "Food",
	}
}

func TestValidate_Accepted(t *testing.T) {
	res := Validate(validRecord())
	require.True(t, res.OK(), "detail: %s", res.Detail)

	d := res.Draft
	assert.Equal(t, "Grocery", d.Description)
	assert.True(t, d.Amount.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, models.TransactionTypeExpense, d.Kind)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), d.OccurredOn)
	require.NotNil(t, d.Notes)
	assert.Equal(t, "Monthly groceries", *d.Notes)
	require.NotNil(t, d.CategoryLabel)
	assert.Equal(t, "Food", *d.CategoryLabel)
}

func TestValidate_Normalization(t *testing.T) {
	t.Run("type_is_lowercased", func(t *testing.T) {
		for _, in := range []string{"INCOME", "Income", " income "} {
			rec := validRecord()
			rec.Type = in
			res := Validate(rec)
			require.True(t, res.OK(), "type %q", in)
			assert.Equal(t, models.TransactionTypeIncome, res.Draft.Kind)
		}
	})

	t.Run("blank_optionals_are_absent", func(t *testing.T) {
		rec := validRecord()
		rec.Notes = ""
		rec.Category = "   "
		res := Validate(rec)
		require.True(t, res.OK())
		assert.Nil(t, res.Draft.Notes)
		assert.Nil(t, res.Draft.CategoryLabel)
	})

	t.Run("zero_and_negative_amounts_pass", func(t *testing.T) {
		for _, in := range []string{"0", "-15.25"} {
			rec := validRecord()
			rec.Amount = in
			res := Validate(rec)
			require.True(t, res.OK(), "amount %q", in)
			assert.True(t, res.Draft.Amount.Equal(decimal.RequireFromString(in)))
		}
	})

	t.Run("date_layouts", func(t *testing.T) {
		want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		for _, in := range []string{
			"2025-03-01",
			"2025-03-01T23:30:00+08:00",
			"2025-03-01 10:00:00",
			"2025/03/01",
			"03/01/2025",
			"Mar 1, 2025",
			"1 Mar 2025",
		} {
			rec := validRecord()
			rec.Date = in
			res := Validate(rec)
			require.True(t, res.OK(), "date %q: %s", in, res.Detail)
			assert.Equal(t, want, res.Draft.OccurredOn, "date %q", in)
		}
	})
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawRecord)
		want   Reason
	}{
		{"missing_description", func(r *RawRecord) { r.Description = "" }, MissingField},
		{"blank_description", func(r *RawRecord) { r.Description = "  " }, MissingField},
		{"missing_amount", func(r *RawRecord) { r.Amount = "" }, MissingField},
		{"missing_type", func(r *RawRecord) { r.Type = "" }, MissingField},
		{"missing_date", func(r *RawRecord) { r.Date = "" }, MissingField},
		{"non_numeric_amount", func(r *RawRecord) { r.Amount = "notanumber" }, InvalidAmount},
		{"trailing_junk_amount", func(r *RawRecord) { r.Amount = "12abc" }, InvalidAmount},
		{"nan_amount", func(r *RawRecord) { r.Amount = "NaN" }, InvalidAmount},
		{"unknown_type", func(r *RawRecord) { r.Type = "unknown" }, InvalidType},
		{"transfer_type", func(r *RawRecord) { r.Type = "transfer" }, InvalidType},
		{"bad_date", func(r *RawRecord) { r.Date = "yesterday" }, InvalidDate},
		{"impossible_date", func(r *RawRecord) { r.Date = "2025-02-30" }, InvalidDate},
		{"missing_wins_over_bad_amount", func(r *RawRecord) { r.Amount = "x"; r.Date = "" }, MissingField},
		{"amount_checked_before_type", func(r *RawRecord) { r.Amount = "x"; r.Type = "other" }, InvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			res := Validate(rec)
			assert.False(t, res.OK())
			assert.Equal(t, tt.want, res.Reason)
			assert.NotEmpty(t, res.Detail)
		})
	}
}

func TestValidate_NamesMissingField(t *testing.T) {
	rec := validRecord()
	rec.Date = ""
	res := Validate(rec)
	assert.Equal(t, MissingField, res.Reason)
	assert.Contains(t, res.Detail, "date")
}

func TestValidate_LongValueDetail(t *testing.T) {
	rec := validRecord()
	rec.Amount = strings.Repeat("ab", 19) + "€€€€€€"
	res := Validate(rec)
	require.Equal(t, InvalidAmount, res.Reason)
	assert.True(t, utf8.ValidString(res.Detail), "detail: %q", res.Detail)
	assert.Contains(t, res.Detail, `"`+strings.Repeat("ab", 19)+"€€...\"")

	rec = validRecord()
	rec.Type = strings.Repeat("ü", 45)
	res = Validate(rec)
	require.Equal(t, InvalidType, res.Reason)
	assert.True(t, utf8.ValidString(res.Detail))
	assert.Contains(t, res.Detail, strings.Repeat("ü", 40)+"...")
	assert.NotContains(t, res.Detail, strings.Repeat("ü", 41))
}

func TestValidate_Pure(t *testing.T) {
	records := []RawRecord{
		validRecord(),
		{Description: "Bad", Amount: "notanumber", Type: "expense", Date: "2025-03-15"},
		{Description: "Bad2", Amount: "10", Type: "unknown", Date: "2025-03-15"},
		{},
	}
	for _, rec := range records {
		assert.Equal(t, Validate(rec), Validate(rec))
	}
}
