package adminapi

// Init registers every API route on the web server. webserver.Init must run first.
func Init() {
	registerAuthRoutes()
	registerCustomerRoutes()
	registerCategoryRoutes()
	registerProductRoutes()
	registerTransactionRoutes()
	registerDashboardRoutes()
}
