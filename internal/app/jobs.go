package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughpos/internal/domain"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedClearOprLogs()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@every 1h", func() {
		a.SchedLowStockTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedClearOprLogs removes operation logs past the retention window
func (a *Application) SchedClearOprLogs() int64 {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	days := a.appConfig.Pos.OprLogRetentionDays
	if days <= 0 {
		days = 365
	}
	res := a.gormDB.
		Where("opt_time < ?", time.Now().Add(-time.Hour*24*time.Duration(days))).
		Delete(&domain.SysOprLog{})
	if res.Error != nil {
		zap.L().Error("clear operation logs failed", zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}

// SchedLowStockTask warns about products at or below the configured threshold
func (a *Application) SchedLowStockTask() int {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	threshold := a.appConfig.Pos.LowStockThreshold
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := a.sales.LowStock(ctx, threshold)
	if err != nil {
		zap.L().Error("low stock scan failed", zap.Error(err))
		return 0
	}
	for _, p := range rows {
		zap.L().Warn("product stock is low",
			zap.Int64("product_id", p.ID),
			zap.String("name", p.Name),
			zap.Int("stock", p.Stock),
			zap.Int("threshold", threshold),
			zap.String("namespace", "pos"))
	}
	return len(rows)
}
