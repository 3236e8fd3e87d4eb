package adminapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughpos/internal/webserver"
)

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard/stats", dashboardStats, webserver.RequireAdmin)
	webserver.ApiGET("/dashboard/sales-chart", salesChart, webserver.RequireAdmin)
}

func dashboardStats(c echo.Context) error {
	stats, err := GetAppContext(c).Sales().Dashboard(c.Request().Context())
	if err != nil {
		return salesFail(c, err, "Failed to load dashboard")
	}
	return ok(c, stats)
}

func salesChart(c echo.Context) error {
	days, _ := strconv.Atoi(c.QueryParam("days"))
	if days > 366 {
		days = 366
	}
	points, err := GetAppContext(c).Sales().SalesChart(c.Request().Context(), days)
	if err != nil {
		return salesFail(c, err, "Failed to load sales chart")
	}
	return ok(c, points)
}
