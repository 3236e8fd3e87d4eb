package sales

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/pkg/common"
	"golang.org/x/sync/errgroup"
)

// ReportQuery bounds a sales report, both dates optional.
type ReportQuery struct {
	StartDate string
	EndDate   string
}

type ReportSummary struct {
	TotalSales       decimal.Decimal `json:"totalSales"`
	TransactionCount int             `json:"transactionCount"`
	CompletedCount   int             `json:"completedCount"`
	PendingCount     int             `json:"pendingCount"`
	CancelledCount   int             `json:"cancelledCount"`
	RefundedCount    int             `json:"refundedCount"`
}

type TransactionReport struct {
	Summary      ReportSummary        `json:"summary"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Report summarises the transactions visible to actor in the date range.
// TotalSales only counts completed transactions.
func (s *Service) Report(ctx context.Context, actor domain.Actor, q ReportQuery) (*TransactionReport, error) {
	filter, err := buildFilter(actor, ListQuery{StartDate: q.StartDate, EndDate: q.EndDate})
	if err != nil {
		return nil, err
	}
	rows, err := s.repos.Transactions.FindAll(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "query report transactions")
	}
	return &TransactionReport{Summary: summarize(rows), Transactions: rows}, nil
}

func summarize(rows []domain.Transaction) ReportSummary {
	sum := ReportSummary{TotalSales: decimal.Zero, TransactionCount: len(rows)}
	for _, t := range rows {
		switch t.Status {
		case domain.StatusCompleted:
			sum.CompletedCount++
			sum.TotalSales = sum.TotalSales.Add(t.TotalAmount)
		case domain.StatusPending:
			sum.PendingCount++
		case domain.StatusCancelled:
			sum.CancelledCount++
		case domain.StatusRefunded:
			sum.RefundedCount++
		}
	}
	return sum
}

// StockEntry is one row of the stock report.
type StockEntry struct {
	ProductID    int64           `json:"id,string"`
	Name         string          `json:"name"`
	Stock        int             `json:"stock"`
	Price        decimal.Decimal `json:"price"`
	CategoryName string          `json:"categoryName"`
}

// StockReport lists all products, lowest stock first.
func (s *Service) StockReport(ctx context.Context) ([]StockEntry, error) {
	products, err := s.repos.Catalog.StockLevels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "query stock levels")
	}
	rows := make([]StockEntry, 0, len(products))
	for _, p := range products {
		entry := StockEntry{ProductID: p.ID, Name: p.Name, Stock: p.Stock, Price: p.Price}
		if p.Category != nil {
			entry.CategoryName = p.Category.Name
		}
		rows = append(rows, entry)
	}
	return rows, nil
}

// LowStock lists products at or below threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	rows, err := s.repos.Catalog.LowStock(ctx, threshold)
	return rows, errors.Wrap(err, "query low stock")
}

type BestSeller struct {
	ProductID   int64           `json:"id,string"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Sold        int64           `json:"sold"`
}

// BestSellers ranks products by quantity sold across all details. Products
// that no longer exist are left out.
func (s *Service) BestSellers(ctx context.Context, limit int) ([]BestSeller, error) {
	if limit <= 0 {
		limit = DefaultBestSellerLimit
	}
	sales, err := s.repos.Catalog.TopSelling(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate best sellers")
	}
	ids := make([]int64, 0, len(sales))
	for _, ps := range sales {
		ids = append(ids, ps.ProductID)
	}
	products, err := s.repos.Catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query best seller products")
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	rows := make([]BestSeller, 0, len(sales))
	for _, ps := range sales {
		p, ok := byID[ps.ProductID]
		if !ok {
			continue
		}
		rows = append(rows, BestSeller{
			ProductID:   p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Image:       p.Image,
			Description: p.Description,
			Sold:        ps.Sold,
		})
	}
	return rows, nil
}

type DashboardStats struct {
	TotalProducts      int64                `json:"totalProducts"`
	TotalCustomers     int64                `json:"totalCustomers"`
	TotalSales         int64                `json:"totalSales"`
	TotalRevenue       decimal.Decimal      `json:"totalRevenue"`
	AverageSale        decimal.Decimal      `json:"averageSale"`
	MedianSale         decimal.Decimal      `json:"medianSale"`
	RecentTransactions []domain.Transaction `json:"recentTransactions"`
}

// Dashboard gathers the store wide counters concurrently.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var (
		out       = &DashboardStats{}
		completed []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalProducts, err = s.repos.Catalog.CountProducts(gctx)
		return errors.Wrap(err, "count products")
	})
	g.Go(func() (err error) {
		out.TotalCustomers, err = s.repos.Customers.CountCustomers(gctx)
		return errors.Wrap(err, "count customers")
	})
	g.Go(func() (err error) {
		out.TotalSales, err = s.repos.Transactions.Count(gctx)
		return errors.Wrap(err, "count transactions")
	})
	g.Go(func() (err error) {
		completed, err = s.repos.Transactions.CompletedSince(gctx, time.Time{})
		return errors.Wrap(err, "query completed transactions")
	})
	g.Go(func() (err error) {
		out.RecentTransactions, err = s.repos.Transactions.Recent(gctx, 5)
		return errors.Wrap(err, "query recent transactions")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.TotalRevenue = sumTotals(completed)
	out.AverageSale, out.MedianSale = basketStats(completed)
	return out, nil
}

func basketStats(rows []domain.Transaction) (decimal.Decimal, decimal.Decimal) {
	if len(rows) == 0 {
		return decimal.Zero, decimal.Zero
	}
	data := make(stats.Float64Data, 0, len(rows))
	for _, t := range rows {
		data = append(data, t.TotalAmount.InexactFloat64())
	}
	mean, _ := data.Mean()
	median, _ := data.Median()
	return decimal.NewFromFloat(mean).Round(2), decimal.NewFromFloat(median).Round(2)
}

type ChartPoint struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// SalesChart buckets completed sales of the last days per calendar day, oldest first.
// Days without sales are present with zero values.
func (s *Service) SalesChart(ctx context.Context, days int) ([]ChartPoint, error) {
	if days <= 0 {
		days = 30
	}
	since := common.StartOfDay(s.now()).AddDate(0, 0, -(days - 1))
	rows, err := s.repos.Transactions.CompletedSince(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "query sales chart")
	}

	points := make([]ChartPoint, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = ChartPoint{Date: day, Total: decimal.Zero}
		index[day] = i
	}
	for _, t := range rows {
		i, ok := index[t.TransactionDate.In(since.Location()).Format("2006-01-02")]
		if !ok {
			continue
		}
		points[i].Total = points[i].Total.Add(t.TotalAmount)
		points[i].Count++
	}
	return points, nil
}
