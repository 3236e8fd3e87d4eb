package adminapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/mattn/go-sqlite3"
	"github.com/talkincode/toughpos/internal/app"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/webserver"
	"gorm.io/gorm"
)

type successBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type pagedBody struct {
	Success      bool        `json:"success"`
	Count        int         `json:"count"`
	TotalRecords int64       `json:"totalRecords"`
	TotalPages   int         `json:"totalPages"`
	CurrentPage  int         `json:"currentPage"`
	Data         interface{} `json:"data"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, successBody{Success: true, Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, successBody{Success: true, Data: data})
}

func okMessage(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, successBody{Success: true, Message: message, Data: data})
}

// fail writes the error envelope. details must never carry raw storage errors.
func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return webserver.JSONError(c, status, code, message, details)
}

func paged(c echo.Context, rows interface{}, count int, total int64, page, pageSize int) error {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return c.JSON(http.StatusOK, pagedBody{
		Success:      true,
		Count:        count,
		TotalRecords: total,
		TotalPages:   totalPages,
		CurrentPage:  page,
		Data:         rows,
	})
}

// parsePagination reads page and limit (pageSize and perPage are accepted too).
func parsePagination(c echo.Context) (int, int) {
	cfg := GetAppContext(c).Config().Pos
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize := cfg.DefaultPageSize
	for _, key := range []string{"limit", "pageSize", "perPage"} {
		if v, err := strconv.Atoi(c.QueryParam(key)); err == nil && v > 0 {
			pageSize = v
			break
		}
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if cfg.MaxPageSize > 0 && pageSize > cfg.MaxPageSize {
		pageSize = cfg.MaxPageSize
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

// GetDB returns the request scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func currentActor(c echo.Context) domain.Actor {
	actor, _ := webserver.GetActor(c)
	return actor
}

func handleValidationError(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Request validation failed", webserver.ValidationDetails(err))
}

var errBadBody = errors.New("unable to parse request body")

// bindAndValidate binds the body into payload and runs its validate tags.
func bindAndValidate(c echo.Context, payload interface{}) error {
	if err := c.Bind(payload); err != nil {
		return errBadBody
	}
	return c.Validate(payload)
}

// invalidPayload answers a bindAndValidate failure.
func invalidPayload(c echo.Context, err error) error {
	if errors.Is(err, errBadBody) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request body", nil)
	}
	return handleValidationError(c, err)
}

// emailTaken reports whether a row of model other than exceptID already uses email.
func emailTaken(c echo.Context, model interface{}, email string, exceptID int64) (bool, error) {
	var count int64
	err := GetDB(c).Model(model).Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error
	return count > 0, err
}

// isDuplicateKey reports a unique index violation from postgres or sqlite.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// logOperation sends an entry to the operation log.
func logOperation(c echo.Context, action, desc string) {
	operator := "anonymous"
	if actor, ok := webserver.GetActor(c); ok {
		operator = app.ActorName(actor)
	}
	logOperationAs(c, operator, action, desc)
}

func logOperationAs(c echo.Context, operator, action, desc string) {
	GetAppContext(c).Events().Publish(app.EventOperation, app.Operation{
		Operator: operator,
		IP:       c.RealIP(),
		Action:   action,
		Desc:     desc,
	})
}
