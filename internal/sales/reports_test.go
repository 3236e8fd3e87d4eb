package sales

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughpos/internal/domain"
)

func TestListTransactionsScopingAndFilters(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, "P1", 1000, 100)
	ctx := context.Background()

	var aliceIDs []int64
	for i := 0; i < 3; i++ {
		aliceIDs = append(aliceIDs, f.sell(t, p1, 1, domain.StatusCompleted).ID)
	}
	bobTxn, _, err := f.svc.CreateTransaction(ctx, f.staff(), CreateTransactionInput{
		CustomerID:    f.bob.ID,
		Items:         []CartItem{{ProductID: p1.ID, Quantity: 2}},
		PaymentAmount: money(2000),
	})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, f.staff(), aliceIDs[0], domain.StatusRefunded)
	require.NoError(t, err)

	page, err := f.svc.ListTransactions(ctx, domain.CustomerActor(f.alice.ID), ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalRecords)
	for _, txn := range page.Data {
		assert.Equal(t, f.alice.ID, txn.CustomerID)
	}

	// customers cannot widen their scope by name
	page, err = f.svc.ListTransactions(ctx, domain.CustomerActor(f.alice.ID), ListQuery{CustomerName: "bob"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalRecords)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{Status: "all"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.TotalRecords)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{Status: "refunded"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalRecords)
	assert.Equal(t, aliceIDs[0], page.Data[0].ID)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{CustomerName: "BOB"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalRecords)
	assert.Equal(t, bobTxn.ID, page.Data[0].ID)
	require.NotNil(t, page.Data[0].Customer)
	assert.Equal(t, "Bob Jones", page.Data[0].Customer.Name)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{CustomerName: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRecords)
	assert.Empty(t, page.Data)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{Search: strconv.FormatInt(bobTxn.ID, 10)})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalRecords)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{Search: "not-an-id"})
	require.NoError(t, err)
	assert.Zero(t, page.TotalRecords)

	_, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{Status: "lost"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestListTransactionsPagingAndSort(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, "P1", 1000, 100)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		f.sell(t, p1, i, domain.StatusCompleted)
	}

	page, err := f.svc.ListTransactions(ctx, f.staff(), ListQuery{Page: 2, Limit: 2, Sort: "totalAmount", Order: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.TotalRecords)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.Count)
	require.Len(t, page.Data, 2)
	assert.True(t, decimal.NewFromInt(3000).Equal(page.Data[0].TotalAmount))
	assert.True(t, decimal.NewFromInt(4000).Equal(page.Data[1].TotalAmount))

	// unknown sort field falls back to date, limit is capped
	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{Sort: "password; drop table", Limit: 10000})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Count)
	assert.Equal(t, 1, page.TotalPages)
}

func TestListTransactionsDateRange(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, "P1", 1000, 100)
	ctx := context.Background()

	jan := f.sell(t, p1, 1, domain.StatusCompleted)
	feb := f.sell(t, p1, 1, domain.StatusCompleted)
	mar := f.sell(t, p1, 1, domain.StatusCompleted)
	f.backdate(t, jan.ID, time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local))
	f.backdate(t, feb.ID, time.Date(2024, 2, 29, 22, 30, 0, 0, time.Local))
	f.backdate(t, mar.ID, time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local))

	page, err := f.svc.ListTransactions(ctx, f.staff(), ListQuery{StartDate: "2024-02-01", EndDate: "2024-02-29"})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalRecords, "end date covers its whole day")
	assert.Equal(t, feb.ID, page.Data[0].ID)

	page, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{StartDate: "2024-02-01"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalRecords)

	_, err = f.svc.ListTransactions(ctx, f.staff(), ListQuery{EndDate: "someday"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestGetTransactionOwnership(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, "P1", 1000, 10)
	txn := f.sell(t, p1, 1, domain.StatusCompleted)
	ctx := context.Background()

	_, details, err := f.svc.GetTransaction(ctx, domain.CustomerActor(f.alice.ID), txn.ID)
	require.NoError(t, err)
	assert.Len(t, details, 1)

	_, _, err = f.svc.GetTransaction(ctx, domain.CustomerActor(f.bob.ID), txn.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, _, err = f.svc.GetTransaction(ctx, f.staff(), 1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReportSummary(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, "P1", 1000, 100)
	ctx := context.Background()

	f.sell(t, p1, 2, domain.StatusCompleted)
	f.sell(t, p1, 3, domain.StatusCompleted)
	refunded := f.sell(t, p1, 4, domain.StatusCompleted)
	f.sell(t, p1, 1, domain.StatusPending)
	_, err := f.svc.UpdateStatus(ctx, f.staff(), refunded.ID, domain.StatusRefunded)
	require.NoError(t, err)

	report, err := f.svc.Report(ctx, f.staff(), ReportQuery{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Summary.TransactionCount)
	assert.Equal(t, 2, report.Summary.CompletedCount)
	assert.Equal(t, 1, report.Summary.RefundedCount)
	assert.Equal(t, 1, report.Summary.PendingCount)
	assert.Zero(t, report.Summary.CancelledCount)
	assert.True(t, decimal.NewFromInt(5000).Equal(report.Summary.TotalSales), report.Summary.TotalSales.String())
	assert.Len(t, report.Transactions, 4)

	bobReport, err := f.svc.Report(ctx, domain.CustomerActor(f.bob.ID), ReportQuery{})
	require.NoError(t, err)
	assert.Zero(t, bobReport.Summary.TransactionCount)
	assert.True(t, bobReport.Summary.TotalSales.IsZero())
}

func TestStockReportAndBestSellers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tea := f.product(t, "Tea", 1000, 50)
	coffee := f.product(t, "Coffee", 2000, 50)
	juice := f.product(t, "Juice", 3000, 50)
	water := f.product(t, "Water", 500, 50)
	f.product(t, "Unsold", 100, 1)

	f.sell(t, tea, 2, domain.StatusCompleted)
	f.sell(t, coffee, 5, domain.StatusCompleted)
	f.sell(t, coffee, 4, domain.StatusCompleted)
	f.sell(t, juice, 7, domain.StatusCompleted)
	f.sell(t, water, 1, domain.StatusCompleted)

	best, err := f.svc.BestSellers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, best, 3)
	assert.Equal(t, "Coffee", best[0].Name)
	assert.EqualValues(t, 9, best[0].Sold)
	assert.Equal(t, "Juice", best[1].Name)
	assert.EqualValues(t, 7, best[1].Sold)
	assert.Equal(t, "Tea", best[2].Name)
	assert.True(t, decimal.NewFromInt(2000).Equal(best[0].Price))

	all, err := f.svc.BestSellers(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	stock, err := f.svc.StockReport(ctx)
	require.NoError(t, err)
	require.Len(t, stock, 5)
	assert.Equal(t, "Unsold", stock[0].Name)
	assert.Equal(t, 1, stock[0].Stock)
	assert.True(t, decimal.NewFromInt(100).Equal(stock[0].Price), stock[0].Price.String())
	assert.Equal(t, "Drinks", stock[0].CategoryName)

	raw, err := json.Marshal(stock[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"price":`)

	low, err := f.svc.LowStock(ctx, 41)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Unsold", low[0].Name)
	assert.Equal(t, "Coffee", low[1].Name)
}

func TestDashboardAndSalesChart(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	f := newFixture(t, WithClock(func() time.Time { return now }))
	p1 := f.product(t, "P1", 1000, 100)
	ctx := context.Background()

	a := f.sell(t, p1, 1, domain.StatusCompleted)
	b := f.sell(t, p1, 2, domain.StatusCompleted)
	c := f.sell(t, p1, 6, domain.StatusCompleted)
	f.sell(t, p1, 1, domain.StatusPending)
	f.backdate(t, a.ID, now.AddDate(0, 0, -2))
	f.backdate(t, b.ID, now.AddDate(0, 0, -2))
	f.backdate(t, c.ID, now.AddDate(0, 0, -40))

	stats, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalProducts)
	assert.EqualValues(t, 2, stats.TotalCustomers)
	assert.EqualValues(t, 4, stats.TotalSales)
	assert.True(t, decimal.NewFromInt(9000).Equal(stats.TotalRevenue))
	assert.True(t, decimal.NewFromInt(3000).Equal(stats.AverageSale))
	assert.True(t, decimal.NewFromInt(2000).Equal(stats.MedianSale))
	assert.Len(t, stats.RecentTransactions, 4)

	chart, err := f.svc.SalesChart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, chart, 7)
	assert.Equal(t, "2024-06-09", chart[0].Date)
	assert.Equal(t, "2024-06-15", chart[6].Date)
	assert.Equal(t, "2024-06-13", chart[4].Date)
	assert.Equal(t, 2, chart[4].Count)
	assert.True(t, decimal.NewFromInt(3000).Equal(chart[4].Total))
	assert.Zero(t, chart[6].Count, "pending sales are not charted")
}
