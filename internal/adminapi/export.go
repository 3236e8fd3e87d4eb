package adminapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughpos/internal/domain"
	"github.com/talkincode/toughpos/internal/sales"
	"go.uber.org/zap"
)

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// reportRow is one exported transaction line.
type reportRow struct {
	ID              string `csv:"id"`
	TransactionDate string `csv:"transaction_date"`
	Customer        string `csv:"customer"`
	Cashier         string `csv:"cashier"`
	Status          string `csv:"status"`
	TotalAmount     string `csv:"total_amount"`
	PaymentAmount   string `csv:"payment_amount"`
	ChangeAmount    string `csv:"change_amount"`
}

var reportHeader = []string{"id", "transaction_date", "customer", "cashier", "status", "total_amount", "payment_amount", "change_amount"}

func reportRows(txns []domain.Transaction) []*reportRow {
	rows := make([]*reportRow, 0, len(txns))
	for _, t := range txns {
		row := &reportRow{
			ID:              strconv.FormatInt(t.ID, 10),
			TransactionDate: t.TransactionDate.Format(time.RFC3339),
			Status:          string(t.Status),
			TotalAmount:     t.TotalAmount.StringFixed(2),
			PaymentAmount:   t.PaymentAmount.StringFixed(2),
			ChangeAmount:    t.ChangeAmount.StringFixed(2),
		}
		if t.Customer != nil {
			row.Customer = t.Customer.Name
		}
		if t.Cashier != nil {
			row.Cashier = t.Cashier.Name
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *reportRow) values() []string {
	return []string{r.ID, r.TransactionDate, r.Customer, r.Cashier, r.Status, r.TotalAmount, r.PaymentAmount, r.ChangeAmount}
}

func reportCSV(report *sales.TransactionReport) ([]byte, error) {
	rows := reportRows(report.Transactions)
	return gocsv.MarshalBytes(&rows)
}

func reportXLSX(report *sales.TransactionReport) ([]byte, error) {
	const sheet = "Transactions"
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)
	for i, h := range reportHeader {
		f.SetCellValue(sheet, cellName(i, 1), h)
	}
	line := 2
	for _, row := range reportRows(report.Transactions) {
		for i, v := range row.values() {
			f.SetCellValue(sheet, cellName(i, line), v)
		}
		line++
	}

	line++
	sum := report.Summary
	for _, kv := range [][2]string{
		{"total_sales", sum.TotalSales.StringFixed(2)},
		{"transaction_count", strconv.Itoa(sum.TransactionCount)},
		{"completed_count", strconv.Itoa(sum.CompletedCount)},
		{"pending_count", strconv.Itoa(sum.PendingCount)},
		{"cancelled_count", strconv.Itoa(sum.CancelledCount)},
		{"refunded_count", strconv.Itoa(sum.RefundedCount)},
	} {
		f.SetCellValue(sheet, cellName(0, line), kv[0])
		f.SetCellValue(sheet, cellName(1, line), kv[1])
		line++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cellName turns a zero based column and a row into an A1 reference.
func cellName(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}

func exportTransactionReport(c echo.Context) error {
	format := strings.ToLower(strings.TrimSpace(c.QueryParam("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return fail(c, http.StatusBadRequest, "INVALID_INPUT", "Format must be csv or xlsx", nil)
	}

	report, err := GetAppContext(c).Sales().Report(c.Request().Context(), currentActor(c), reportQuery(c))
	if err != nil {
		return salesFail(c, err, "Failed to build report")
	}

	var (
		data  []byte
		ctype = mimeCSV
	)
	if format == "xlsx" {
		data, err = reportXLSX(report)
		ctype = mimeXLSX
	} else {
		data, err = reportCSV(report)
	}
	if err != nil {
		zap.L().Error("export report failed", zap.String("format", format), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to export report", nil)
	}

	filename := fmt.Sprintf("transactions_%s.%s", time.Now().Format("20060102150405"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	logOperation(c, "report_export", "exported transaction report as "+format)
	return c.Blob(http.StatusOK, ctype, data)
}
