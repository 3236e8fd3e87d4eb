package sales

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/pkg/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	category domain.Category
	admin    domain.SysOpr
	officer  domain.SysOpr
	alice    domain.Customer
	bob      domain.Customer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db, svc: NewGormService(db, opts...)}

	f.category = domain.Category{ID: common.UUIDint64(), Name: "Drinks", Icon: domain.DefaultCategoryIcon, IsActive: true}
	require.NoError(t, db.Create(&f.category).Error)

	f.admin = domain.SysOpr{ID: common.UUIDint64(), Name: "Admin", Email: "admin@pos.local", Role: string(domain.RoleAdmin)}
	f.officer = domain.SysOpr{ID: common.UUIDint64(), Name: "Officer", Email: "officer@pos.local", Role: string(domain.RoleOfficer)}
	require.NoError(t, db.Create(&f.admin).Error)
	require.NoError(t, db.Create(&f.officer).Error)

	f.alice = domain.Customer{ID: common.UUIDint64(), Name: "Alice Smith", Email: "alice@example.com"}
	f.bob = domain.Customer{ID: common.UUIDint64(), Name: "Bob Jones", Email: "bob@example.com"}
	require.NoError(t, db.Create(&f.alice).Error)
	require.NoError(t, db.Create(&f.bob).Error)
	return f
}

func (f *fixture) product(t *testing.T, name string, price int64, stock int) domain.Product {
	t.Helper()
	p := domain.Product{
		ID:         common.UUIDint64(),
		Name:       name,
		Price:      decimal.NewFromInt(price),
		Stock:      stock,
		CategoryID: f.category.ID,
		Image:      domain.DefaultProductImage,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) stockOf(t *testing.T, id int64) int {
	t.Helper()
	var p domain.Product
	require.NoError(t, f.db.First(&p, id).Error)
	return p.Stock
}

func (f *fixture) countTransactions(t *testing.T) (int64, int64) {
	t.Helper()
	var txns, details int64
	require.NoError(t, f.db.Model(&domain.Transaction{}).Count(&txns).Error)
	require.NoError(t, f.db.Model(&domain.TransactionDetail{}).Count(&details).Error)
	return txns, details
}

func (f *fixture) staff() domain.Actor {
	return domain.StaffActor(f.officer.ID, domain.RoleOfficer)
}

func money(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// backdate moves a transaction to a fixed date.
func (f *fixture) backdate(t *testing.T, id int64, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&domain.Transaction{}).Where("id = ?", id).Update("transaction_date", at).Error)
}
