package app

import (
	"errors"
	"strings"
	"time"

	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	superEmail      = "admin@toughpos.local"
	defaultPassword = "toughpos"
)

func (a *Application) checkSuper() {
	var operator domain.SysOpr
	err := a.gormDB.Where("email = ?", superEmail).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, err := common.HashPassword(defaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Name:      "administrator",
			Email:     superEmail,
			Password:  hashedPassword,
			Role:      string(domain.RoleAdmin),
			LastLogin: time.Now(),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query default admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetRole := !strings.EqualFold(operator.Role, string(domain.RoleAdmin))
	if !resetPassword && !resetRole {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		hashedPassword, err := common.HashPassword(defaultPassword)
		if err != nil {
			zap.L().Error("failed to hash default admin password", zap.Error(err))
			return
		}
		updates["password"] = hashedPassword
	}
	if resetRole {
		updates["role"] = string(domain.RoleAdmin)
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair default admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default admin account",
		zap.String("email", superEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole))
}

// checkCategories initializes the default product categories
func (a *Application) checkCategories() {
	defaultCategories := []domain.Category{
		{Name: "Food", Description: "Meals and snacks", Icon: "Utensils"},
		{Name: "Beverages", Description: "Hot and cold drinks", Icon: "Coffee"},
		{Name: "Household", Description: "Daily household needs", Icon: "Home"},
		{Name: "Other", Description: "Uncategorized items", Icon: domain.DefaultCategoryIcon},
	}

	for _, c := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", c.Name).Count(&count)
		if count == 0 {
			c.ID = common.UUIDint64()
			c.IsActive = true
			c.CreatedAt = time.Now()
			c.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&c).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("name", c.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized default category", zap.String("name", c.Name))
			}
		}
	}
}
