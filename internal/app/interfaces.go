package app

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/robfig/cron/v3"
	"github.com/talkincode/toughpos/config"
	"github.com/talkincode/toughpos/internal/sales"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// SalesProvider provides the transaction engine
type SalesProvider interface {
	Sales() *sales.Service
}

// EventBusProvider provides the in-process event bus
type EventBusProvider interface {
	Events() EventBus.Bus
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	SalesProvider
	EventBusProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
