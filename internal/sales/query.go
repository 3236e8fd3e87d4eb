package sales

import (
	"strconv"
	"strings"
	"time"

	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/pkg/common"
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) normalize(def, max int) Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = def
	}
	if max > 0 && p.PageSize > max {
		p.PageSize = max
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Sort is a whitelisted column and direction.
type Sort struct {
	Column string
	Desc   bool
}

func (s Sort) clause() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// whitelist allowed sort columns to avoid SQL injection
var transactionSortColumns = map[string]string{
	"id":               "id",
	"transactionDate":  "transaction_date",
	"transaction_date": "transaction_date",
	"date":             "transaction_date",
	"totalAmount":      "total_amount",
	"total_amount":     "total_amount",
	"paymentAmount":    "payment_amount",
	"payment_amount":   "payment_amount",
	"changeAmount":     "change_amount",
	"change_amount":    "change_amount",
	"status":           "status",
	"createdAt":        "created_at",
	"created_at":       "created_at",
}

func parseTransactionSort(field, order string) Sort {
	col, ok := transactionSortColumns[strings.TrimSpace(field)]
	if !ok {
		col = "transaction_date"
	}
	return Sort{Column: col, Desc: !strings.EqualFold(strings.TrimSpace(order), "asc")}
}

// ListQuery is the raw query of a transaction listing as the client sent it.
type ListQuery struct {
	Status       string
	Search       string
	CustomerName string
	StartDate    string
	EndDate      string
	Page         int
	Limit        int
	Sort         string
	Order        string
}

// TransactionFilter is the resolved listing filter handed to the repository.
type TransactionFilter struct {
	CustomerID    int64
	TransactionID int64
	Status        domain.TransactionStatus
	CustomerName  string
	StartDate     *time.Time
	EndDate       *time.Time
	// MatchNone short-circuits the query to an empty result.
	MatchNone bool
}

// buildFilter resolves q for actor. Customers only ever see their own rows.
func buildFilter(actor domain.Actor, q ListQuery) (TransactionFilter, error) {
	var f TransactionFilter
	if actor.IsCustomer() {
		f.CustomerID = actor.ID
	}

	if st := strings.TrimSpace(q.Status); st != "" && !strings.EqualFold(st, "all") {
		status, err := domain.ParseTransactionStatus(st)
		if err != nil {
			return f, newError(ErrInvalidInput, "Invalid status filter %q", st)
		}
		f.Status = status
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		id, err := strconv.ParseInt(search, 10, 64)
		if err != nil || id <= 0 {
			f.MatchNone = true
		} else {
			f.TransactionID = id
		}
	}

	if actor.IsStaff() {
		f.CustomerName = strings.TrimSpace(q.CustomerName)
	}

	start, end, err := parseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return f, err
	}
	f.StartDate, f.EndDate = start, end
	return f, nil
}

// parseDateRange parses optional bounds; the end bound covers its whole day.
func parseDateRange(startDate, endDate string) (*time.Time, *time.Time, error) {
	var start, end *time.Time
	if common.IsNotEmpty(startDate) {
		t, err := common.ParseDate(startDate)
		if err != nil {
			return nil, nil, newError(ErrInvalidInput, "Invalid startDate %q", startDate)
		}
		start = &t
	}
	if common.IsNotEmpty(endDate) {
		t, err := common.ParseDate(endDate)
		if err != nil {
			return nil, nil, newError(ErrInvalidInput, "Invalid endDate %q", endDate)
		}
		t = common.EndOfDay(t)
		end = &t
	}
	return start, end, nil
}

// TransactionPage is one page of a listing plus paging metadata.
type TransactionPage struct {
	Data         []domain.Transaction `json:"data"`
	Count        int                  `json:"count"`
	TotalRecords int64                `json:"totalRecords"`
	TotalPages   int                  `json:"totalPages"`
	CurrentPage  int                  `json:"currentPage"`
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
