package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/sales"
	"github.com/talkincode/toughpos/internal/webserver"
	"go.uber.org/zap"
)

func registerTransactionRoutes() {
	webserver.ApiPOST("/transactions", createTransaction)
	webserver.ApiGET("/transactions", listTransactions)
	webserver.ApiGET("/transactions/report", transactionReport)
	webserver.ApiGET("/transactions/report/export", exportTransactionReport)
	webserver.ApiGET("/transactions/:id", getTransaction)
	webserver.ApiPUT("/transactions/:id", updateTransactionStatus, webserver.RequireStaff)
}

// salesFail maps an engine error to its HTTP status. Unknown errors are logged
// and answered with fallback.
func salesFail(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, sales.ErrInvalidInput):
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", sales.PublicMessage(err, fallback), nil)
	case errors.Is(err, sales.ErrInsufficientStock):
		return fail(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", sales.PublicMessage(err, fallback), nil)
	case errors.Is(err, sales.ErrInvalidPayment):
		return fail(c, http.StatusBadRequest, "INVALID_PAYMENT", sales.PublicMessage(err, fallback), nil)
	case errors.Is(err, sales.ErrInvalidTransition):
		return fail(c, http.StatusBadRequest, "INVALID_TRANSITION", sales.PublicMessage(err, fallback), nil)
	case errors.Is(err, sales.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", sales.PublicMessage(err, fallback), nil)
	case errors.Is(err, sales.ErrForbidden):
		return fail(c, http.StatusForbidden, "FORBIDDEN", sales.PublicMessage(err, fallback), nil)
	}
	zap.L().Error(fallback, zap.Error(err), zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, nil)
}

type transactionPayload struct {
	Customer      string           `json:"customer"`
	Items         []sales.CartItem `json:"items"`
	PaymentAmount *decimal.Decimal `json:"paymentAmount"`
	Status        string           `json:"status"`
}

type transactionView struct {
	Transaction *domain.Transaction        `json:"transaction"`
	Details     []domain.TransactionDetail `json:"details"`
}

func createTransaction(c echo.Context) error {
	var payload transactionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request body", nil)
	}

	in := sales.CreateTransactionInput{
		Items:         payload.Items,
		PaymentAmount: payload.PaymentAmount,
	}
	if cust := strings.TrimSpace(payload.Customer); cust != "" {
		id, err := strconv.ParseInt(cust, 10, 64)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid customer ID", nil)
		}
		in.CustomerID = id
	}
	if st := strings.TrimSpace(payload.Status); st != "" {
		status, err := domain.ParseTransactionStatus(st)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid status", nil)
		}
		in.Status = status
	}

	txn, details, err := GetAppContext(c).Sales().CreateTransaction(c.Request().Context(), currentActor(c), in)
	if err != nil {
		return salesFail(c, err, "Failed to create transaction")
	}
	return created(c, transactionView{Transaction: txn, Details: details})
}

func listQuery(c echo.Context) sales.ListQuery {
	page, pageSize := parsePagination(c)
	return sales.ListQuery{
		Status:       c.QueryParam("status"),
		Search:       c.QueryParam("search"),
		CustomerName: c.QueryParam("customerName"),
		StartDate:    c.QueryParam("startDate"),
		EndDate:      c.QueryParam("endDate"),
		Page:         page,
		Limit:        pageSize,
		Sort:         c.QueryParam("sort"),
		Order:        c.QueryParam("order"),
	}
}

func listTransactions(c echo.Context) error {
	res, err := GetAppContext(c).Sales().ListTransactions(c.Request().Context(), currentActor(c), listQuery(c))
	if err != nil {
		return salesFail(c, err, "Failed to query transactions")
	}
	return c.JSON(http.StatusOK, pagedBody{
		Success:      true,
		Count:        res.Count,
		TotalRecords: res.TotalRecords,
		TotalPages:   res.TotalPages,
		CurrentPage:  res.CurrentPage,
		Data:         res.Data,
	})
}

func reportQuery(c echo.Context) sales.ReportQuery {
	return sales.ReportQuery{
		StartDate: c.QueryParam("startDate"),
		EndDate:   c.QueryParam("endDate"),
	}
}

func transactionReport(c echo.Context) error {
	report, err := GetAppContext(c).Sales().Report(c.Request().Context(), currentActor(c), reportQuery(c))
	if err != nil {
		return salesFail(c, err, "Failed to build report")
	}
	return ok(c, report)
}

func getTransaction(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid transaction ID", nil)
	}
	txn, details, err := GetAppContext(c).Sales().GetTransaction(c.Request().Context(), currentActor(c), id)
	if err != nil {
		return salesFail(c, err, "Failed to query transaction")
	}
	return ok(c, transactionView{Transaction: txn, Details: details})
}

type statusPayload struct {
	Status string `json:"status" validate:"required"`
}

func updateTransactionStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid transaction ID", nil)
	}
	var payload statusPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return invalidPayload(c, err)
	}
	status, err := domain.ParseTransactionStatus(payload.Status)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "Invalid status", nil)
	}
	txn, err := GetAppContext(c).Sales().UpdateStatus(c.Request().Context(), currentActor(c), id, status)
	if err != nil {
		return salesFail(c, err, "Failed to update transaction")
	}
	return ok(c, txn)
}
