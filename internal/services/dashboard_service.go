package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	apperrors "smartspend/internal/errors"
	"smartspend/internal/models"
	"smartspend/internal/repository"
)

// RecentTransactionsLimit bounds DashboardSummary.RecentTransactions.
const RecentTransactionsLimit = 3

// DashboardMetrics records dashboard activity.
type DashboardMetrics interface {
	ObserveDashboard()
}

// dashboardService aggregates a user's ledger on every call.
type dashboardService struct {
	store   repository.LedgerStore
	metrics DashboardMetrics
}

// NewDashboardService creates a new DashboardServicer. metrics may be nil.
func NewDashboardService(store repository.LedgerStore, metrics DashboardMetrics) DashboardServicer {
	return &dashboardService{store: store, metrics: metrics}
}

// Summarize totals income and expenses over all of the user's transactions
// and picks the most recent ones.
func (s *dashboardService) Summarize(ctx context.Context, userID string) (*DashboardSummary, error) {
	transactions, err := s.store.FindTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := summarize(transactions)
	if s.metrics != nil {
		s.metrics.ObserveDashboard()
	}
	return summary, nil
}

func summarize(transactions []models.Transaction) *DashboardSummary {
	income, expenses := decimal.Zero, decimal.Zero
	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionTypeIncome:
			income = income.Add(tx.Amount)
		case models.TransactionTypeExpense:
			expenses = expenses.Add(tx.Amount)
		}
	}

	recent := make([]models.Transaction, len(transactions))
	copy(recent, transactions)
	sort.SliceStable(recent, func(i, j int) bool {
		a, b := recent[i], recent[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if len(recent) > RecentTransactionsLimit {
		recent = recent[:RecentTransactionsLimit]
	}

	return &DashboardSummary{
		TotalBalance:       income.Sub(expenses),
		TotalIncome:        income,
		TotalExpenses:      expenses,
		RecentTransactions: recent,
	}
}
