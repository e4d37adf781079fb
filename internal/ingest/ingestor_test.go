package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"smartspend/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const header = "description,amount,type,date,notes,category\n"

const sampleCSV = header +
	`"Grocery",120.50,expense,2025-03-15,"Monthly groceries",Food` + "\n" +
	`"Bad",notanumber,expense,2025-03-15,,` + "\n" +
	`"Salary",3000,income,2025-03-01,"March salary",Salary` + "\n" +
	`"Bad2",10,unknown,2025-03-15,,` + "\n"

func TestIngestBytes_DropsInvalidRowsInOrder(t *testing.T) {
	drafts, err := NewIngestor(0).IngestBytes([]byte(sampleCSV))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Grocery", drafts[0].Description)
	assert.Equal(t, "Salary", drafts[1].Description)
}

func TestIngestReader_Report(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	report, err := NewIngestor(0).IngestReader(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, report.RowsRead)
	assert.Len(t, report.Drafts, 2)
	assert.Equal(t, []Rejection{
		{Line: 3, Reason: InvalidAmount, Detail: `amount "notanumber" is not a number`},
		{Line: 5, Reason: InvalidType, Detail: `type "unknown" must be income or expense`},
	}, report.Rejections)

	assert.Equal(t, 2, logs.FilterMessage("skipping CSV row").Len())
}

func TestIngestReader_KeepsInputOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	valid := 0
	for i := 0; i < 50; i++ {
		if i%3 == 0 {
			b.WriteString("row,abc,expense,2025-01-01,,\n")
			continue
		}
		valid++
		b.WriteString("row")
		b.WriteString(strings.Repeat("x", i))
		b.WriteString(",1,income,2025-01-01,,\n")
	}

	report, err := NewIngestor(0).IngestReader(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, report.Drafts, valid)
	for i := 1; i < len(report.Drafts); i++ {
		assert.Less(t, len(report.Drafts[i-1].Description), len(report.Drafts[i].Description))
	}
}

func TestIngestReader_Header(t *testing.T) {
	t.Run("columns_matched_by_name", func(t *testing.T) {
		input := "Category,DATE, Type ,Amount,Description\n" +
			"Food,2025-03-15,expense,9.99,Lunch\n"
		report, err := NewIngestor(0).IngestReader(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, report.Drafts, 1)
		d := report.Drafts[0]
		assert.Equal(t, "Lunch", d.Description)
		assert.Equal(t, "9.99", d.Amount.String())
		require.NotNil(t, d.CategoryLabel)
		assert.Equal(t, "Food", *d.CategoryLabel)
		assert.Nil(t, d.Notes)
	})

	t.Run("bom_is_stripped", func(t *testing.T) {
		input := "\ufeff" + header + "Coffee,3.5,expense,2025-03-15,,\n"
		drafts, err := NewIngestor(0).IngestBytes([]byte(input))
		require.NoError(t, err)
		assert.Len(t, drafts, 1)
	})

	t.Run("missing_required_column", func(t *testing.T) {
		_, err := NewIngestor(0).IngestBytes([]byte("description,amount,date\nx,1,2025-01-01\n"))
		require.ErrorIs(t, err, ErrMalformedInput)
		assert.Contains(t, err.Error(), "type")
	})

	t.Run("empty_input", func(t *testing.T) {
		_, err := NewIngestor(0).IngestBytes(nil)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("header_only", func(t *testing.T) {
		report, err := NewIngestor(0).IngestReader(strings.NewReader(header))
		require.NoError(t, err)
		assert.Empty(t, report.Drafts)
		assert.Equal(t, 0, report.RowsRead)
	})
}

func TestIngestReader_ShortRowsAreRejectedNotFatal(t *testing.T) {
	input := header + "Lonely,5\n" + "Rent,900,expense,2025-03-01\n"
	report, err := NewIngestor(0).IngestReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, report.Drafts, 1)
	assert.Equal(t, "Rent", report.Drafts[0].Description)
	require.Len(t, report.Rejections, 1)
	assert.Equal(t, MissingField, report.Rejections[0].Reason)
}

func TestIngestReader_MalformedFraming(t *testing.T) {
	input := header + `"Unclosed,1,expense,2025-03-01,,` + "\n" + "Rent,900,expense,2025-03-01,,\n"
	_, err := NewIngestor(0).IngestBytes([]byte(input))
	assert.ErrorIs(t, err, ErrMalformedInput)

	input = header + `Bare "quote",1,expense,2025-03-01,,` + "\n"
	_, err = NewIngestor(0).IngestBytes([]byte(input))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestIngestReader_SizeLimit(t *testing.T) {
	input := header + strings.Repeat("Coffee,3.5,expense,2025-03-15,,\n", 100)

	_, err := NewIngestor(int64(len(input) - 1)).IngestBytes([]byte(input))
	assert.True(t, errors.Is(err, ErrInputTooLarge), "got %v", err)

	drafts, err := NewIngestor(int64(len(input))).IngestBytes([]byte(input))
	require.NoError(t, err)
	assert.Len(t, drafts, 100)
}

func TestIngestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transactions.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	drafts, err := NewIngestor(0).IngestFile(path)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	_, err = NewIngestor(0).IngestFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedInput)
}
