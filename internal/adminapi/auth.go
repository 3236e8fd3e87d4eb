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

func registerAuthRoutes() {
	webserver.PublicPOST("/auth/login", staffLogin)
	webserver.ApiGET("/auth/me", getMe)
	webserver.ApiPUT("/auth/updatedetails", updateStaffDetails, webserver.RequireStaff)
	webserver.ApiPUT("/auth/updatepassword", updateStaffPassword, webserver.RequireStaff)
	webserver.ApiPOST("/auth/create-staff", createStaff, webserver.RequireAdmin)
	webserver.ApiGET("/auth/users", listStaff, webserver.RequireAdmin)
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResult struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

func staffLogin(c echo.Context) error {
	var payload loginPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	var opr domain.SysOpr
	err := GetDB(c).Where("email = ?", email).First(&opr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	} else if err != nil {
		zap.L().Error("query staff failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query account", nil)
	}
	if !common.CheckPassword(opr.Password, payload.Password) {
		logOperationAs(c, email, "login_failed", "staff login rejected")
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	}
	role, err := domain.ParseRole(opr.Role)
	if err != nil || !role.IsStaff() {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Account role is not allowed to sign in", nil)
	}

	token, err := webserver.IssueToken(GetAppContext(c).Config(), domain.StaffActor(opr.ID, role))
	if err != nil {
		zap.L().Error("issue token failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}
	now := time.Now()
	GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Update("last_login", now)
	opr.LastLogin = now
	opr.Role = string(role)

	logOperationAs(c, opr.Email, "login", "staff login")
	return ok(c, loginResult{Token: token, User: opr})
}

func getMe(c echo.Context) error {
	actor := currentActor(c)
	if actor.IsCustomer() {
		var cust domain.Customer
		if err := GetDB(c).Where("id = ?", actor.ID).First(&cust).Error; err != nil {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Account not found", nil)
		}
		return ok(c, cust)
	}
	var opr domain.SysOpr
	if err := GetDB(c).Where("id = ?", actor.ID).First(&opr).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Account not found", nil)
	}
	return ok(c, opr)
}

type staffDetailsPayload struct {
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

func updateStaffDetails(c echo.Context) error {
	var payload staffDetailsPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	actor := currentActor(c)
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(payload.Name); name != "" {
		updates["name"] = name
	}
	if email := strings.ToLower(strings.TrimSpace(payload.Email)); email != "" {
		taken, err := emailTaken(c, &domain.SysOpr{}, email, actor.ID)
		if err != nil {
			zap.L().Error("query staff email failed", zap.Error(err))
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update account", nil)
		}
		if taken {
			return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already in use", nil)
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Nothing to update", nil)
	}
	updates["updated_at"] = time.Now()
	if err := GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", actor.ID).Updates(updates).Error; isDuplicateKey(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already in use", nil)
	} else if err != nil {
		zap.L().Error("update staff failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update account", nil)
	}
	var opr domain.SysOpr
	if err := GetDB(c).Where("id = ?", actor.ID).First(&opr).Error; err != nil {
		zap.L().Error("reload staff failed", zap.Int64("opr_id", actor.ID), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load updated account", nil)
	}
	return ok(c, opr)
}

type passwordPayload struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func updateStaffPassword(c echo.Context) error {
	var payload passwordPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	actor := currentActor(c)
	var opr domain.SysOpr
	if err := GetDB(c).Where("id = ?", actor.ID).First(&opr).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Account not found", nil)
	}
	if !common.CheckPassword(opr.Password, payload.CurrentPassword) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Password is incorrect", nil)
	}
	hashed, err := common.HashPassword(payload.NewPassword)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update password", nil)
	}
	if err := GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", opr.ID).
		Updates(map[string]interface{}{"password": hashed, "updated_at": time.Now()}).Error; err != nil {
		zap.L().Error("update staff password failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update password", nil)
	}
	token, err := webserver.IssueToken(GetAppContext(c).Config(), actor)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", nil)
	}
	logOperation(c, "password_change", "staff password changed")
	return ok(c, loginResult{Token: token, User: opr})
}

type createStaffPayload struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required"`
}

func createStaff(c echo.Context) error {
	var payload createStaffPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	role, err := domain.ParseRole(payload.Role)
	if err != nil || !role.IsStaff() {
		return fail(c, http.StatusBadRequest, "INVALID_ROLE", "Role must be admin or officer", nil)
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	taken, err := emailTaken(c, &domain.SysOpr{}, email, 0)
	if err != nil {
		zap.L().Error("query staff email failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create staff", nil)
	}
	if taken {
		return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already in use", nil)
	}
	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create staff", nil)
	}
	opr := domain.SysOpr{
		ID:        common.UUIDint64(),
		Name:      strings.TrimSpace(payload.Name),
		Email:     email,
		Password:  hashed,
		Role:      string(role),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&opr).Error; isDuplicateKey(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_EMAIL", "Email already in use", nil)
	} else if err != nil {
		zap.L().Error("create staff failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create staff", nil)
	}
	logOperation(c, "staff_create", "created "+string(role)+" "+email)
	return created(c, opr)
}

func listStaff(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SysOpr{})
	if role := strings.TrimSpace(c.QueryParam("role")); role != "" {
		if r, err := domain.ParseRole(role); err == nil {
			db = db.Where("role = ?", string(r))
		}
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", nil)
	}
	rows := make([]domain.SysOpr, 0)
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", nil)
	}
	return paged(c, rows, len(rows), total, page, pageSize)
}
