package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/webserver"
	"github.com/talkincode/toughpos/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerCategoryRoutes() {
	webserver.PublicGET("/categories", listCategories)
	webserver.PublicGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory, webserver.RequireStaff)
	webserver.ApiPUT("/categories/:id", updateCategory, webserver.RequireStaff)
	webserver.ApiDELETE("/categories/:id", deleteCategory, webserver.RequireStaff)
}

type categoryPayload struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"max=64"`
	IsActive    *bool  `json:"isActive"`
}

type categoryView struct {
	domain.Category
	ProductCount int64 `json:"productCount"`
}

// productCounts maps category id to the number of products in it.
func productCounts(db *gorm.DB) (map[int64]int64, error) {
	var rows []struct {
		CategoryID int64
		Total      int64
	}
	err := db.Model(&domain.Product{}).
		Select("category_id, COUNT(*) AS total").
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int64, len(rows))
	for _, r := range rows {
		counts[r.CategoryID] = r.Total
	}
	return counts, nil
}

func listCategories(c echo.Context) error {
	db := GetDB(c)
	query := db.Model(&domain.Category{})
	if c.QueryParam("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	categories := make([]domain.Category, 0)
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		zap.L().Error("query categories failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", nil)
	}
	counts, err := productCounts(db)
	if err != nil {
		zap.L().Error("count category products failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", nil)
	}
	rows := make([]categoryView, 0, len(categories))
	for _, cat := range categories {
		rows = append(rows, categoryView{Category: cat, ProductCount: counts[cat.ID]})
	}
	return ok(c, rows)
}

func findCategory(c echo.Context) (*domain.Category, bool, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, false, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var cat domain.Category
	err = GetDB(c).Where("id = ?", id).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return nil, false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", nil)
	}
	return &cat, true, nil
}

func getCategory(c echo.Context) error {
	cat, found, err := findCategory(c)
	if !found {
		return err
	}
	var count int64
	if err := GetDB(c).Model(&domain.Product{}).Where("category_id = ?", cat.ID).Count(&count).Error; err != nil {
		zap.L().Error("count category products failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", nil)
	}
	return ok(c, categoryView{Category: *cat, ProductCount: count})
}

func categoryNameTaken(c echo.Context, name string, exceptID int64) (bool, error) {
	var count int64
	err := GetDB(c).Model(&domain.Category{}).Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), exceptID).Count(&count).Error
	return count > 0, err
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	name := strings.TrimSpace(payload.Name)
	if taken, err := categoryNameTaken(c, name, 0); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", nil)
	} else if taken {
		return fail(c, http.StatusBadRequest, "DUPLICATE_NAME", "Category name already exists", nil)
	}
	cat := domain.Category{
		ID:          common.UUIDint64(),
		Name:        name,
		Description: strings.TrimSpace(payload.Description),
		Icon:        common.IfEmptyStr(strings.TrimSpace(payload.Icon), domain.DefaultCategoryIcon),
		IsActive:    payload.IsActive == nil || *payload.IsActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&cat).Error; isDuplicateKey(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_NAME", "Category name already exists", nil)
	} else if err != nil {
		zap.L().Error("create category failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", nil)
	}
	logOperation(c, "category_create", "created category "+cat.Name)
	return created(c, categoryView{Category: cat})
}

func updateCategory(c echo.Context) error {
	cat, found, err := findCategory(c)
	if !found {
		return err
	}
	var payload categoryPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	name := strings.TrimSpace(payload.Name)
	if taken, err := categoryNameTaken(c, name, cat.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", nil)
	} else if taken {
		return fail(c, http.StatusBadRequest, "DUPLICATE_NAME", "Category name already exists", nil)
	}
	cat.Name = name
	cat.Description = strings.TrimSpace(payload.Description)
	if icon := strings.TrimSpace(payload.Icon); icon != "" {
		cat.Icon = icon
	}
	if payload.IsActive != nil {
		cat.IsActive = *payload.IsActive
	}
	cat.UpdatedAt = time.Now()
	if err := GetDB(c).Save(cat).Error; isDuplicateKey(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_NAME", "Category name already exists", nil)
	} else if err != nil {
		zap.L().Error("update category failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", nil)
	}
	logOperation(c, "category_update", "updated category "+cat.Name)
	return ok(c, cat)
}

// deleteCategory refuses while products still reference the category.
func deleteCategory(c echo.Context) error {
	cat, found, err := findCategory(c)
	if !found {
		return err
	}
	var count int64
	if err := GetDB(c).Model(&domain.Product{}).Where("category_id = ?", cat.ID).Count(&count).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", nil)
	}
	if count > 0 {
		return fail(c, http.StatusBadRequest, "CATEGORY_IN_USE", "Category still has products", map[string]int64{"productCount": count})
	}
	if err := GetDB(c).Where("id = ?", cat.ID).Delete(&domain.Category{}).Error; err != nil {
		zap.L().Error("delete category failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", nil)
	}
	logOperation(c, "category_delete", "deleted category "+cat.Name)
	return okMessage(c, "Category deleted", map[string]interface{}{"id": cat.ID})
}
