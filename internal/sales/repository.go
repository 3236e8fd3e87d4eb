package sales

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/talkincode/toughpos/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository is the product side of the engine.
type CatalogRepository interface {
	// GetProduct returns gorm.ErrRecordNotFound when the product does not exist
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// GetProducts loads products by id, missing ids are skipped
	GetProducts(ctx context.Context, ids []int64) ([]domain.Product, error)

	// DecrementStock subtracts qty only if enough stock remains, reports whether a row changed
	DecrementStock(ctx context.Context, id int64, qty int) (bool, error)

	// IncrementStock adds qty back, reports whether the product still exists
	IncrementStock(ctx context.Context, id int64, qty int) (bool, error)

	// StockLevels lists all products with their category, ordered by stock ascending
	StockLevels(ctx context.Context) ([]domain.Product, error)

	// LowStock lists products at or below threshold
	LowStock(ctx context.Context, threshold int) ([]domain.Product, error)

	// TopSelling aggregates sold quantities per product over all transaction details
	TopSelling(ctx context.Context, limit int) ([]ProductSales, error)

	CountProducts(ctx context.Context) (int64, error)
}

// CustomerRepository resolves customers referenced by transactions.
type CustomerRepository interface {
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)
}

// TransactionRepository persists transactions and their details.
type TransactionRepository interface {
	// Create inserts the transaction header and all of its details
	Create(ctx context.Context, txn *domain.Transaction, details []domain.TransactionDetail) error

	// GetByID loads a transaction with customer and cashier
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)

	// GetDetails loads the lines of a transaction with their products
	GetDetails(ctx context.Context, transactionID int64) ([]domain.TransactionDetail, error)

	// CompareAndSetStatus moves id from one status to another, false when the current status differs
	CompareAndSetStatus(ctx context.Context, id int64, from, to domain.TransactionStatus) (bool, error)

	// List returns one page of filtered transactions and the total match count
	List(ctx context.Context, filter TransactionFilter, page Pagination, sort Sort) ([]domain.Transaction, int64, error)

	// FindAll returns every filtered transaction, newest first
	FindAll(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)

	// Recent returns the latest transactions
	Recent(ctx context.Context, limit int) ([]domain.Transaction, error)

	// CompletedSince returns completed transactions at or after since, the zero time means all
	CompletedSince(ctx context.Context, since time.Time) ([]domain.Transaction, error)

	Count(ctx context.Context) (int64, error)
}

// ProductSales is a sold quantity per product.
type ProductSales struct {
	ProductID int64
	Sold      int64
}

// Repositories groups the repositories bound to one database handle.
type Repositories struct {
	Catalog      CatalogRepository
	Customers    CustomerRepository
	Transactions TransactionRepository
}

// UnitOfWork runs a function against repositories that share one database transaction.
type UnitOfWork interface {
	Repositories() Repositories
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

// GormUnitOfWork is the GORM implementation of UnitOfWork
type GormUnitOfWork struct {
	db *gorm.DB
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

func (u *GormUnitOfWork) Repositories() Repositories {
	return gormRepositories(u.db)
}

// Do commits when fn returns nil and rolls back everything otherwise.
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormRepositories(tx))
	})
}

func gormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Catalog:      NewGormCatalogRepository(db),
		Customers:    NewGormCustomerRepository(db),
		Transactions: NewGormTransactionRepository(db),
	}
}

// LikeCond builds a case-insensitive substring condition for column.
func LikeCond(db *gorm.DB, column string, term string) (string, string) {
	if strings.EqualFold(db.Name(), "postgres") {
		return column + " ILIKE ?", "%" + term + "%"
	}
	return "LOWER(" + column + ") LIKE ?", "%" + strings.ToLower(term) + "%"
}

// GormCatalogRepository is the GORM implementation of CatalogRepository
type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormCatalogRepository) GetProducts(ctx context.Context, ids []int64) ([]domain.Product, error) {
	var rows []domain.Product
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *GormCatalogRepository) DecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *GormCatalogRepository) IncrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *GormCatalogRepository) StockLevels(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Order("stock ASC").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GormCatalogRepository) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	var rows []domain.Product
	err := r.db.WithContext(ctx).
		Where("stock <= ?", threshold).
		Order("stock ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GormCatalogRepository) TopSelling(ctx context.Context, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.db.WithContext(ctx).
		Table(domain.TransactionDetail{}.TableName()+" AS d").
		Select("d.product_id AS product_id, SUM(d.quantity) AS sold").
		Joins("JOIN "+domain.Product{}.TableName()+" p ON p.id = d.product_id").
		Group("d.product_id").
		Order("sold DESC").
		Order("d.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormCatalogRepository) CountProducts(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Count(&total).Error
	return total, err
}

// GormCustomerRepository is the GORM implementation of CustomerRepository
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCustomerRepository) CountCustomers(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).Count(&total).Error
	return total, err
}

// GormTransactionRepository is the GORM implementation of TransactionRepository
type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

func (r *GormTransactionRepository) Create(ctx context.Context, txn *domain.Transaction, details []domain.TransactionDetail) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(txn).Error; err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	return db.Omit(clause.Associations).Create(&details).Error
}

func preloadParties(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "phone_number")
		}).
		Preload("Cashier", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "role")
		})
}

func (r *GormTransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := preloadParties(r.db.WithContext(ctx)).Where("id = ?", id).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *GormTransactionRepository) GetDetails(ctx context.Context, transactionID int64) ([]domain.TransactionDetail, error) {
	var rows []domain.TransactionDetail
	err := r.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "price", "image")
		}).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *GormTransactionRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to domain.TransactionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *GormTransactionRepository) filtered(ctx context.Context, f TransactionFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.MatchNone {
		return db.Where("1 = 0")
	}
	if f.CustomerID != 0 {
		db = db.Where("customer_id = ?", f.CustomerID)
	}
	if f.TransactionID != 0 {
		db = db.Where("id = ?", f.TransactionID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.CustomerName != "" {
		cond, pattern := LikeCond(r.db, "name", f.CustomerName)
		sub := r.db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.Customer{}).
			Select("id").
			Where(cond, pattern)
		db = db.Where("customer_id IN (?)", sub)
	}
	if f.StartDate != nil {
		db = db.Where("transaction_date >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		db = db.Where("transaction_date <= ?", *f.EndDate)
	}
	return db
}

func (r *GormTransactionRepository) List(ctx context.Context, f TransactionFilter, page Pagination, sort Sort) ([]domain.Transaction, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	rows := make([]domain.Transaction, 0)
	if total == 0 {
		return rows, 0, nil
	}
	err := preloadParties(r.filtered(ctx, f)).
		Order(sort.clause()).
		Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error
	return rows, total, err
}

func (r *GormTransactionRepository) FindAll(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error) {
	rows := make([]domain.Transaction, 0)
	err := preloadParties(r.filtered(ctx, f)).
		Order("transaction_date DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *GormTransactionRepository) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	rows := make([]domain.Transaction, 0)
	err := preloadParties(r.db.WithContext(ctx)).
		Order("transaction_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *GormTransactionRepository) CompletedSince(ctx context.Context, since time.Time) ([]domain.Transaction, error) {
	var rows []domain.Transaction
	db := r.db.WithContext(ctx).
		Select("id", "transaction_date", "total_amount", "status").
		Where("status = ?", domain.StatusCompleted)
	if !since.IsZero() {
		db = db.Where("transaction_date >= ?", since)
	}
	err := db.Order("transaction_date ASC").Find(&rows).Error
	return rows, err
}

func (r *GormTransactionRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Transaction{}).Count(&total).Error
	return total, err
}

// sumTotals adds up the total amounts of rows.
func sumTotals(rows []domain.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range rows {
		sum = sum.Add(t.TotalAmount)
	}
	return sum
}
