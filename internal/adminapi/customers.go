package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/sales"
	"github.com/talkincode/toughpos/internal/webserver"
	"github.com/talkincode/toughpos/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerCustomerRoutes() {
	webserver.PublicPOST("/customers/register", registerCustomer)
	webserver.PublicPOST("/customers/login", customerLogin)
	webserver.ApiGET("/customers", listCustomers, webserver.RequireStaff)
	webserver.ApiGET("/customers/:id", getCustomer)
	webserver.ApiPUT("/customers/:id", updateCustomer)
	webserver.ApiDELETE("/customers/:id", deleteCustomer, webserver.RequireStaff)
}

type registerPayload struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Address     string `json:"address" validate:"max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32"`
}

func registerCustomer(c echo.Context) error {
	var payload registerPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	taken, err := emailTaken(c, &domain.Customer{}, email, 0)
	if err != nil {
		zap.L().Error("query customer email failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to register customer", nil)
	}
	if taken {
		return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already registered", nil)
	}
	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register customer", nil)
	}
	cust := domain.Customer{
		ID:          common.UUIDint64(),
		Name:        strings.TrimSpace(payload.Name),
		Email:       email,
		Password:    hashed,
		Address:     strings.TrimSpace(payload.Address),
		PhoneNumber: strings.TrimSpace(payload.PhoneNumber),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&cust).Error; isDuplicateKey(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already registered", nil)
	} else if err != nil {
		zap.L().Error("create customer failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to register customer", nil)
	}
	token, err := webserver.IssueToken(GetAppContext(c).Config(), domain.CustomerActor(cust.ID))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}
	logOperationAs(c, cust.Email, "customer_register", "customer registered")
	return created(c, loginResult{Token: token, User: cust})
}

func customerLogin(c echo.Context) error {
	var payload loginPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	var cust domain.Customer
	err := GetDB(c).Where("email = ?", email).First(&cust).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !common.CheckPassword(cust.Password, payload.Password)) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	} else if err != nil {
		zap.L().Error("query customer failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query account", nil)
	}
	token, err := webserver.IssueToken(GetAppContext(c).Config(), domain.CustomerActor(cust.ID))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}
	logOperationAs(c, cust.Email, "customer_login", "customer login")
	return ok(c, loginResult{Token: token, User: cust})
}

func listCustomers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Customer{})
	if q := strings.TrimSpace(c.QueryParam("search")); q != "" {
		nameCond, pattern := sales.LikeCond(db, "name", q)
		emailCond, _ := sales.LikeCond(db, "email", q)
		db = db.Where(nameCond+" OR "+emailCond, pattern, pattern)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", nil)
	}
	rows := make([]domain.Customer, 0)
	if err := db.Order("name ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", nil)
	}
	return paged(c, rows, len(rows), total, page, pageSize)
}

// loadOwnedCustomer loads the :id customer if the caller may see it, writing the failure otherwise.
func loadOwnedCustomer(c echo.Context) (*domain.Customer, bool, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, false, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	if !currentActor(c).CanAccessCustomer(id) {
		return nil, false, fail(c, http.StatusForbidden, "FORBIDDEN", "Not authorized to access this customer", nil)
	}
	var cust domain.Customer
	err = GetDB(c).Where("id = ?", id).First(&cust).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fail(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
	} else if err != nil {
		return nil, false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customer", nil)
	}
	return &cust, true, nil
}

func getCustomer(c echo.Context) error {
	cust, found, err := loadOwnedCustomer(c)
	if !found {
		return err
	}
	return ok(c, cust)
}

type customerUpdatePayload struct {
	Name        string `json:"name" validate:"omitempty,max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"max=32"`
}

// updateCustomer changes profile fields. Passwords are never changed here.
func updateCustomer(c echo.Context) error {
	cust, found, err := loadOwnedCustomer(c)
	if !found {
		return err
	}
	var payload customerUpdatePayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(payload.Name); name != "" {
		updates["name"] = name
	}
	if email := strings.ToLower(strings.TrimSpace(payload.Email)); email != "" && email != cust.Email {
		taken, err := emailTaken(c, &domain.Customer{}, email, cust.ID)
		if err != nil {
			zap.L().Error("query customer email failed", zap.Error(err))
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update customer", nil)
		}
		if taken {
			return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already registered", nil)
		}
		updates["email"] = email
	}
	if payload.Address != "" {
		updates["address"] = strings.TrimSpace(payload.Address)
	}
	if payload.PhoneNumber != "" {
		updates["phone_number"] = strings.TrimSpace(payload.PhoneNumber)
	}
	updates["updated_at"] = time.Now()
	if err := GetDB(c).Model(&domain.Customer{}).Where("id = ?", cust.ID).Updates(updates).Error; isDuplicateKey(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already registered", nil)
	} else if err != nil {
		zap.L().Error("update customer failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update customer", nil)
	}
	if err := GetDB(c).Where("id = ?", cust.ID).First(cust).Error; err != nil {
		zap.L().Error("reload customer failed", zap.Int64("customer_id", cust.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load updated customer", nil)
	}
	return ok(c, cust)
}

func deleteCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Customer{})
	if res.Error != nil {
		zap.L().Error("delete customer failed", zap.Error(res.Error))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete customer", nil)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
	}
	logOperation(c, "customer_delete", "deleted customer")
	return okMessage(c, "Customer deleted", map[string]interface{}{"id": id})
}
