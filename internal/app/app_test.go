package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/toughpos/config"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/sales"
	"github.com/talkincode/toughpos/pkg/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.Pos.LowStockThreshold = 3
	cfg.Pos.OprLogRetentionDays = 30

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

	a := NewApplication(&cfg)
	a.OverrideDB(db)
	require.NoError(t, a.MigrateDB(false))
	return a
}

func TestCheckSuperCreatesAndRepairsAdmin(t *testing.T) {
	a := newTestApp(t)
	a.checkSuper()
	a.checkSuper()

	var admins []domain.SysOpr
	require.NoError(t, a.DB().Where("email = ?", superEmail).Find(&admins).Error)
	require.Len(t, admins, 1)
	assert.Equal(t, string(domain.RoleAdmin), admins[0].Role)
	assert.True(t, common.CheckPassword(admins[0].Password, defaultPassword))

	require.NoError(t, a.DB().Model(&domain.SysOpr{}).Where("id = ?", admins[0].ID).
		Updates(map[string]interface{}{"role": "officer", "password": ""}).Error)
	a.checkSuper()

	var repaired domain.SysOpr
	require.NoError(t, a.DB().First(&repaired, admins[0].ID).Error)
	assert.Equal(t, string(domain.RoleAdmin), repaired.Role)
	assert.True(t, common.CheckPassword(repaired.Password, defaultPassword))
}

func TestCheckCategoriesIsIdempotent(t *testing.T) {
	a := newTestApp(t)
	a.checkCategories()
	a.checkCategories()

	var count int64
	require.NoError(t, a.DB().Model(&domain.Category{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
}

func seedSale(t *testing.T, a *Application) (domain.Product, domain.Customer) {
	t.Helper()
	cat := domain.Category{ID: common.UUIDint64(), Name: "Snacks", IsActive: true}
	require.NoError(t, a.DB().Create(&cat).Error)
	p := domain.Product{ID: common.UUIDint64(), Name: "Chips", Price: decimal.NewFromInt(5000), Stock: 10, CategoryID: cat.ID}
	require.NoError(t, a.DB().Create(&p).Error)
	c := domain.Customer{ID: common.UUIDint64(), Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, a.DB().Create(&c).Error)
	return p, c
}

func TestEngineEventsWriteOperationLog(t *testing.T) {
	a := newTestApp(t)
	p, c := seedSale(t, a)
	ctx := context.Background()
	officer := domain.StaffActor(77, domain.RoleOfficer)
	pay := decimal.NewFromInt(10000)

	txn, _, err := a.Sales().CreateTransaction(ctx, officer, sales.CreateTransactionInput{
		CustomerID:    c.ID,
		Items:         []sales.CartItem{{ProductID: p.ID, Quantity: 2}},
		PaymentAmount: &pay,
	})
	require.NoError(t, err)
	_, err = a.Sales().UpdateStatus(ctx, officer, txn.ID, domain.StatusRefunded)
	require.NoError(t, err)
	a.Events().Publish(EventOperation, Operation{Operator: "admin", IP: "127.0.0.1", Action: "login", Desc: "staff login"})

	var logs []domain.SysOprLog
	require.NoError(t, a.DB().Order("opt_time ASC").Find(&logs).Error)
	require.Len(t, logs, 3)
	actions := []string{logs[0].OptAction, logs[1].OptAction, logs[2].OptAction}
	assert.ElementsMatch(t, []string{"transaction_create", "transaction_status", "login"}, actions)
	for _, l := range logs {
		if l.OptAction == "transaction_status" {
			assert.Contains(t, l.OptDesc, "completed -> refunded")
			assert.Equal(t, "officer:77", l.OprName)
			assert.Equal(t, common.NA, l.OprIp)
		}
	}
}

func TestSchedClearOprLogs(t *testing.T) {
	a := newTestApp(t)
	old := domain.SysOprLog{ID: common.UUIDint64(), OptAction: "login", OptTime: time.Now().AddDate(0, 0, -31)}
	recent := domain.SysOprLog{ID: common.UUIDint64(), OptAction: "login", OptTime: time.Now().AddDate(0, 0, -1)}
	require.NoError(t, a.DB().Create(&old).Error)
	require.NoError(t, a.DB().Create(&recent).Error)

	assert.EqualValues(t, 1, a.SchedClearOprLogs())
	var count int64
	require.NoError(t, a.DB().Model(&domain.SysOprLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSchedLowStockTask(t *testing.T) {
	a := newTestApp(t)
	cat := domain.Category{ID: common.UUIDint64(), Name: "Misc", IsActive: true}
	require.NoError(t, a.DB().Create(&cat).Error)
	for i, stock := range []int{1, 3, 10} {
		p := domain.Product{ID: common.UUIDint64(), Name: "item" + string(rune('a'+i)), Price: decimal.NewFromInt(100), Stock: stock, CategoryID: cat.ID}
		require.NoError(t, a.DB().Create(&p).Error)
	}
	assert.Equal(t, 2, a.SchedLowStockTask())
}
