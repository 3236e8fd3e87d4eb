package adminapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/sales"
	"github.com/talkincode/toughpos/internal/webserver"
	"github.com/talkincode/toughpos/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type productPayload struct {
	Name        string           `json:"name" validate:"required,min=1,max=100"`
	Description string           `json:"description" validate:"max=500"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
	CategoryID  int64            `json:"categoryId,string" validate:"required"`
}

func registerProductRoutes() {
	webserver.PublicGET("/products", listProducts)
	webserver.ApiGET("/products/stock", stockReport, webserver.RequireStaff)
	webserver.ApiGET("/products/best-sellers", bestSellers, webserver.RequireStaff)
	webserver.PublicGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct, webserver.RequireStaff)
	webserver.ApiPUT("/products/:id", updateProduct, webserver.RequireStaff)
	webserver.ApiPUT("/products/:id/image", uploadProductImage, webserver.RequireStaff)
	webserver.ApiDELETE("/products/:id", deleteProduct, webserver.RequireStaff)
}

// whitelist allowed sort columns to avoid SQL injection
var productSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	q := strings.TrimSpace(c.QueryParam("search"))
	sortCol, ok := productSortColumns[strings.TrimSpace(c.QueryParam("sort"))]
	if !ok {
		sortCol = "name"
	}
	order := "ASC"
	if strings.EqualFold(c.QueryParam("order"), "desc") {
		order = "DESC"
	}

	db := GetDB(c).Model(&domain.Product{})
	if cat := strings.TrimSpace(c.QueryParam("category")); cat != "" {
		categoryID, err := strconv.ParseInt(cat, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
		}
		db = db.Where("category_id = ?", categoryID)
	}
	if q != "" {
		cond, pattern := sales.LikeCond(db, "name", q)
		db = db.Where(cond, pattern)
	}
	if c.QueryParam("inStock") == "true" {
		db = db.Where("stock > 0")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		zap.L().Error("count products failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", nil)
	}

	rows := make([]domain.Product, 0)
	if err := db.Preload("Category").Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		zap.L().Error("query products failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", nil)
	}

	return paged(c, rows, len(rows), total, page, pageSize)
}

func findProduct(c echo.Context) (*domain.Product, bool, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, false, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	err = GetDB(c).Preload("Category").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return nil, false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", nil)
	}
	return &p, true, nil
}

func getProduct(c echo.Context) error {
	p, found, err := findProduct(c)
	if !found {
		return err
	}
	return ok(c, p)
}

// checkProductPayload validates what the tags cannot and loads the category.
func checkProductPayload(c echo.Context, payload *productPayload) (*domain.Category, bool, error) {
	if payload.Price.IsNegative() {
		return nil, false, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must not be negative", nil)
	}
	var cat domain.Category
	err := GetDB(c).Where("id = ?", payload.CategoryID).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return nil, false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", nil)
	}
	return &cat, true, nil
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	cat, found, err := checkProductPayload(c, &payload)
	if !found {
		return err
	}

	now := time.Now()
	p := domain.Product{
		ID:          common.UUIDint64(),
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Price:       payload.Price.Round(2),
		CategoryID:  cat.ID,
		Image:       domain.DefaultProductImage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if payload.Stock != nil {
		p.Stock = *payload.Stock
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		zap.L().Error("create product failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", nil)
	}
	p.Category = cat
	logOperation(c, "product_create", "created product "+p.Name)
	return created(c, p)
}

func updateProduct(c echo.Context) error {
	p, found, err := findProduct(c)
	if !found {
		return err
	}
	var payload productPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	cat, found, err := checkProductPayload(c, &payload)
	if !found {
		return err
	}

	updates := map[string]interface{}{
		"name":        strings.TrimSpace(payload.Name),
		"description": strings.TrimSpace(payload.Description),
		"price":       payload.Price.Round(2),
		"category_id": cat.ID,
		"updated_at":  time.Now(),
	}
	if payload.Stock != nil {
		updates["stock"] = *payload.Stock
	}
	if err := GetDB(c).Model(&domain.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		zap.L().Error("update product failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", nil)
	}
	if err := GetDB(c).Preload("Category").Where("id = ?", p.ID).First(p).Error; err != nil {
		zap.L().Error("reload product failed", zap.Int64("product_id", p.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load updated product", nil)
	}
	logOperation(c, "product_update", "updated product "+p.Name)
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	p, found, err := findProduct(c)
	if !found {
		return err
	}
	if err := GetDB(c).Where("id = ?", p.ID).Delete(&domain.Product{}).Error; err != nil {
		zap.L().Error("delete product failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", nil)
	}
	removeProductImage(c, p.Image)
	logOperation(c, "product_delete", "deleted product "+p.Name)
	return okMessage(c, "Product deleted", map[string]interface{}{"id": strconv.FormatInt(p.ID, 10)})
}

func removeProductImage(c echo.Context, image string) {
	if image == "" || image == domain.DefaultProductImage {
		return
	}
	file := filepath.Join(GetAppContext(c).Config().GetUploadDir(), filepath.Base(image))
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("remove product image failed", zap.String("file", file), zap.Error(err))
	}
}

// uploadProductImage stores the multipart "image" field as product_<id><ext>.
func uploadProductImage(c echo.Context) error {
	p, found, err := findProduct(c)
	if !found {
		return err
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Please upload a file", nil)
	}
	cfg := GetAppContext(c).Config()
	if cfg.Web.MaxUploadSize > 0 && fh.Size > cfg.Web.MaxUploadSize {
		return fail(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("Please upload an image less than %d bytes", cfg.Web.MaxUploadSize), nil)
	}
	if !strings.HasPrefix(fh.Header.Get(echo.HeaderContentType), "image/") {
		return fail(c, http.StatusBadRequest, "INVALID_FILE", "Please upload an image file", nil)
	}

	name := fmt.Sprintf("product_%d%s", p.ID, strings.ToLower(filepath.Ext(fh.Filename)))
	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", nil)
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join(cfg.GetUploadDir(), name))
	if err != nil {
		zap.L().Error("create image file failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Problem with file upload", nil)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		zap.L().Error("write image file failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Problem with file upload", nil)
	}

	if p.Image != name {
		removeProductImage(c, p.Image)
	}
	if err := GetDB(c).Model(&domain.Product{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{"image": name, "updated_at": time.Now()}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", nil)
	}
	p.Image = name
	logOperation(c, "product_image", "uploaded image for product "+p.Name)
	return ok(c, p)
}

func stockReport(c echo.Context) error {
	svc := GetAppContext(c).Sales()
	if c.QueryParam("low") == "true" {
		threshold := GetAppContext(c).Config().Pos.LowStockThreshold
		if v, err := strconv.Atoi(c.QueryParam("threshold")); err == nil && v >= 0 {
			threshold = v
		}
		rows, err := svc.LowStock(c.Request().Context(), threshold)
		if err != nil {
			return salesFail(c, err, "Failed to query stock")
		}
		return ok(c, rows)
	}
	rows, err := svc.StockReport(c.Request().Context())
	if err != nil {
		return salesFail(c, err, "Failed to query stock")
	}
	return ok(c, rows)
}

func bestSellers(c echo.Context) error {
	limit := sales.DefaultBestSellerLimit
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	rows, err := GetAppContext(c).Sales().BestSellers(c.Request().Context(), limit)
	if err != nil {
		return salesFail(c, err, "Failed to query best sellers")
	}
	return ok(c, rows)
}
