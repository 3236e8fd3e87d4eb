package sales

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	EventTransactionCreated = "transaction:created"
	EventTransactionStatus  = "transaction:status"

	DefaultBestSellerLimit = 3
)

// EventPublisher receives engine events after a commit. asaskevich/EventBus satisfies it.
type EventPublisher interface {
	Publish(topic string, args ...interface{})
}

// Service is the transaction engine.
type Service struct {
	uow         UnitOfWork
	repos       Repositories
	events      EventPublisher
	now         func() time.Time
	pageSize    int
	maxPageSize int
}

type Option func(*Service)

func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPageSize sets the default and maximum listing page size.
func WithPageSize(def, max int) Option {
	return func(s *Service) {
		if def > 0 {
			s.pageSize = def
		}
		if max > 0 {
			s.maxPageSize = max
		}
	}
}

func NewService(uow UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:         uow,
		repos:       uow.Repositories(),
		now:         time.Now,
		pageSize:    10,
		maxPageSize: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewGormService builds a Service over a gorm database.
func NewGormService(db *gorm.DB, opts ...Option) *Service {
	return NewService(NewGormUnitOfWork(db), opts...)
}

func (s *Service) publish(topic string, args ...interface{}) {
	if s.events == nil {
		return
	}
	defer func() {
		if err := recover(); err != nil {
			zap.L().Error("event handler panic", zap.String("topic", topic), zap.Any("err", err))
		}
	}()
	s.events.Publish(topic, args...)
}

// CartItem is one requested line of a sale.
type CartItem struct {
	ProductID int64 `json:"productId,string"`
	Quantity  int   `json:"quantity"`
}

type CreateTransactionInput struct {
	// CustomerID is required for staff and optional for customers, who may only name themselves.
	CustomerID    int64
	Items         []CartItem
	PaymentAmount *decimal.Decimal
	// Status is the initial status, pending or completed (default).
	Status domain.TransactionStatus
}

// CreateTransaction records a sale. Every item is checked and its stock taken in
// list order inside one database transaction together with the inserts, so
// any failure leaves stock and transactions untouched.
func (s *Service) CreateTransaction(ctx context.Context, actor domain.Actor, in CreateTransactionInput) (*domain.Transaction, []domain.TransactionDetail, error) {
	customerID, err := s.resolveCustomer(ctx, actor, in.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if err = validateItems(in.Items); err != nil {
		return nil, nil, err
	}

	status := domain.StatusCompleted
	switch in.Status {
	case "", domain.StatusCompleted:
	case domain.StatusPending:
		status = domain.StatusPending
	default:
		return nil, nil, newError(ErrInvalidInput, "Transactions can only be created as pending or completed")
	}

	var (
		txn     *domain.Transaction
		details []domain.TransactionDetail
	)
	err = s.uow.Do(ctx, func(r Repositories) error {
		now := s.now()
		total := decimal.Zero
		details = make([]domain.TransactionDetail, 0, len(in.Items))

		for _, item := range in.Items {
			product, err := r.Catalog.GetProduct(ctx, item.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newError(ErrNotFound, "Product with id %d not found", item.ProductID)
			} else if err != nil {
				return errors.Wrapf(err, "query product %d", item.ProductID)
			}
			if product.Stock < item.Quantity {
				return newError(ErrInsufficientStock, "Insufficient stock for %s. Available: %d", product.Name, product.Stock)
			}

			subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(subtotal)

			taken, err := r.Catalog.DecrementStock(ctx, product.ID, item.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock of product %d", product.ID)
			}
			if !taken {
				// another sale got there between the read and the update
				available := 0
				if current, err := r.Catalog.GetProduct(ctx, product.ID); err == nil {
					available = current.Stock
				}
				return newError(ErrInsufficientStock, "Insufficient stock for %s. Available: %d", product.Name, available)
			}

			details = append(details, domain.TransactionDetail{
				ID:                 common.UUIDint64(),
				ProductID:          product.ID,
				Quantity:           item.Quantity,
				Subtotal:           subtotal,
				PriceAtTransaction: product.Price,
				CreatedAt:          now,
			})
		}

		if !total.IsPositive() {
			return newError(ErrInvalidInput, "Transaction total must be greater than zero")
		}
		if in.PaymentAmount == nil {
			return newError(ErrInvalidPayment, "Payment amount is required")
		}
		if in.PaymentAmount.LessThan(total) {
			return newError(ErrInvalidPayment, "Payment amount %s is less than total amount %s",
				in.PaymentAmount.StringFixed(2), total.StringFixed(2))
		}

		txn = &domain.Transaction{
			ID:              common.UUIDint64(),
			CustomerID:      customerID,
			TransactionDate: now,
			TotalAmount:     total,
			PaymentAmount:   *in.PaymentAmount,
			ChangeAmount:    in.PaymentAmount.Sub(total),
			Status:          status,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if actor.IsStaff() {
			cashierID := actor.ID
			txn.CashierID = &cashierID
		}
		for i := range details {
			details[i].TransactionID = txn.ID
		}
		if err := r.Transactions.Create(ctx, txn, details); err != nil {
			return errors.Wrap(err, "persist transaction")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("transaction created",
		zap.Int64("transaction_id", txn.ID),
		zap.Int64("customer_id", txn.CustomerID),
		zap.String("total", txn.TotalAmount.String()),
		zap.Int("items", len(details)),
		zap.String("namespace", "pos"))
	s.publish(EventTransactionCreated, actor, txn)
	return txn, details, nil
}

func (s *Service) resolveCustomer(ctx context.Context, actor domain.Actor, explicit int64) (int64, error) {
	switch {
	case actor.IsCustomer():
		if explicit != 0 && explicit != actor.ID {
			return 0, newError(ErrForbidden, "Customers can only create transactions for themselves")
		}
		return actor.ID, nil
	case actor.IsStaff():
		if explicit == 0 {
			return 0, newError(ErrInvalidInput, "Customer ID is required for staff transactions")
		}
		_, err := s.repos.Customers.GetCustomer(ctx, explicit)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, newError(ErrNotFound, "Customer not found")
		} else if err != nil {
			return 0, errors.Wrap(err, "query customer")
		}
		return explicit, nil
	default:
		return 0, newError(ErrInternal, "Unrecognized user role")
	}
}

func validateItems(items []CartItem) error {
	if len(items) == 0 {
		return newError(ErrInvalidInput, "Transaction must contain at least one item")
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			return newError(ErrInvalidInput, "Item %d has no product", i+1)
		}
		if item.Quantity < 1 {
			return newError(ErrInvalidInput, "Item %d quantity must be at least 1", i+1)
		}
	}
	return nil
}

// UpdateStatus moves a transaction along its lifecycle. Stock is given back in
// the same database transaction as the status change.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id int64, next domain.TransactionStatus) (*domain.Transaction, error) {
	if !actor.IsStaff() {
		return nil, newError(ErrForbidden, "Only staff can change transaction status")
	}
	switch next {
	case domain.StatusCompleted, domain.StatusCancelled, domain.StatusRefunded:
	default:
		return nil, newError(ErrInvalidInput, "Status must be one of completed, cancelled, refunded")
	}

	var (
		txn  *domain.Transaction
		from domain.TransactionStatus
	)
	err := s.uow.Do(ctx, func(r Repositories) error {
		t, err := r.Transactions.GetByID(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(ErrNotFound, "Transaction not found")
		} else if err != nil {
			return errors.Wrap(err, "query transaction")
		}
		from = t.Status
		if !CanTransition(from, next) {
			return newError(ErrInvalidTransition, "Cannot change transaction status from %s to %s", from, next)
		}

		changed, err := r.Transactions.CompareAndSetStatus(ctx, id, from, next)
		if err != nil {
			return errors.Wrap(err, "update transaction status")
		}
		if !changed {
			return newError(ErrInvalidTransition, "Transaction status was changed by another request")
		}

		if restoresStock(from, next) {
			details, err := r.Transactions.GetDetails(ctx, id)
			if err != nil {
				return errors.Wrap(err, "query transaction details")
			}
			for _, d := range details {
				found, err := r.Catalog.IncrementStock(ctx, d.ProductID, d.Quantity)
				if err != nil {
					return errors.Wrapf(err, "restore stock of product %d", d.ProductID)
				}
				if !found {
					zap.L().Warn("product removed, stock not restored",
						zap.Int64("transaction_id", id),
						zap.Int64("product_id", d.ProductID),
						zap.String("namespace", "pos"))
				}
			}
		}

		t.Status = next
		t.UpdatedAt = s.now()
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("transaction status updated",
		zap.Int64("transaction_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("namespace", "pos"))
	s.publish(EventTransactionStatus, actor, txn, from)
	return txn, nil
}

// ListTransactions returns one page of the transactions visible to actor.
func (s *Service) ListTransactions(ctx context.Context, actor domain.Actor, q ListQuery) (*TransactionPage, error) {
	if !actor.IsStaff() && !actor.IsCustomer() {
		return nil, newError(ErrInternal, "Unrecognized user role")
	}
	filter, err := buildFilter(actor, q)
	if err != nil {
		return nil, err
	}
	page := Pagination{Page: q.Page, PageSize: q.Limit}.normalize(s.pageSize, s.maxPageSize)

	rows, total, err := s.repos.Transactions.List(ctx, filter, page, parseTransactionSort(q.Sort, q.Order))
	if err != nil {
		return nil, errors.Wrap(err, "list transactions")
	}
	return &TransactionPage{
		Data:         rows,
		Count:        len(rows),
		TotalRecords: total,
		TotalPages:   totalPages(total, page.PageSize),
		CurrentPage:  page.Page,
	}, nil
}

// GetTransaction returns a transaction with its lines.
func (s *Service) GetTransaction(ctx context.Context, actor domain.Actor, id int64) (*domain.Transaction, []domain.TransactionDetail, error) {
	txn, err := s.repos.Transactions.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, newError(ErrNotFound, "Transaction not found")
	} else if err != nil {
		return nil, nil, errors.Wrap(err, "query transaction")
	}
	if !actor.CanAccessCustomer(txn.CustomerID) {
		return nil, nil, newError(ErrForbidden, "Not authorized to access this transaction")
	}
	details, err := s.repos.Transactions.GetDetails(ctx, id)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query transaction details")
	}
	return txn, details, nil
}
