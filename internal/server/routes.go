package server

import (
	"dairy-backend/internal/audit"
	"dairy-backend/internal/auth"
	"dairy-backend/internal/catalog"
	"dairy-backend/internal/expense"
	"dairy-backend/internal/inventory"
	"dairy-backend/internal/models"
	"dairy-backend/internal/purchase"
	"dairy-backend/internal/report"
	"dairy-backend/internal/sales"
	"dairy-backend/internal/stock"
	"dairy-backend/internal/waste"

	"github.com/gofiber/fiber/v2"
)

func routes(api fiber.Router, d Deps, src inventory.Source) {
	db := d.DB
	maxUpload := d.Config.MaxUploadBytes()

	// Public auth
	api.Post("/auth/signup", auth.SignupHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, d.Config))

	protected := api.Group("", auth.JWTMiddleware(d.Config.JWTSecret, d.Denylist))
	managers := auth.RequireRole(models.RoleAdmin, models.RoleManager)
	admins := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/me", auth.MeHandler(db))
	protected.Post("/auth/logout", auth.LogoutHandler(d.Denylist))

	// User management
	users := protected.Group("/users", admins)
	users.Get("/", auth.ListUsersHandler(db))
	users.Post("/", auth.CreateUserHandler(db))
	users.Put("/:id", auth.UpdateUserHandler(db))
	users.Delete("/:id", auth.DeleteUserHandler(db))

	// Catalog
	protected.Get("/products", catalog.ListProductsHandler(db))
	protected.Get("/products/:id", catalog.GetProductHandler(db))
	protected.Post("/products", managers, catalog.CreateProductHandler(db))
	protected.Put("/products/:id", managers, catalog.UpdateProductHandler(db))
	protected.Delete("/products/:id", admins, catalog.DeleteProductHandler(db))

	// Purchases
	protected.Get("/purchases", purchase.ListPurchasesHandler(db))
	protected.Get("/purchases/:id", purchase.GetPurchaseHandler(db))
	protected.Post("/purchases", purchase.CreatePurchaseHandler(db))
	protected.Put("/purchases/:id", purchase.UpdatePurchaseHandler(db))
	protected.Delete("/purchases/:id", purchase.DeletePurchaseHandler(db))

	// Sales, payments, customers
	protected.Get("/sales", sales.ListSalesHandler(db))
	protected.Get("/sales/:id", sales.GetSaleHandler(db))
	protected.Post("/sales", sales.CreateSaleHandler(db, d.Publisher))
	protected.Put("/sales/:id", sales.UpdateSaleHandler(db))
	protected.Delete("/sales/:id", sales.DeleteSaleHandler(db))

	protected.Get("/payments", sales.ListPaymentsHandler(db))
	protected.Post("/payments", sales.RecordPaymentHandler(db, d.Publisher, d.Metrics))

	protected.Get("/customers", sales.ListCustomersHandler(db))
	protected.Get("/customers/:id", sales.GetCustomerHandler(db))
	protected.Post("/customers", sales.CreateCustomerHandler(db))
	protected.Put("/customers/:id", sales.UpdateCustomerHandler(db))
	protected.Delete("/customers/:id", sales.DeleteCustomerHandler(db))

	// Expenses
	protected.Get("/expenses", expense.ListExpensesHandler(db))
	protected.Get("/expenses/summary", expense.MonthlySummaryHandler(db))
	protected.Get("/expenses/:id", expense.GetExpenseHandler(db))
	protected.Post("/expenses", expense.CreateExpenseHandler(db))
	protected.Put("/expenses/:id", expense.UpdateExpenseHandler(db))
	protected.Delete("/expenses/:id", expense.DeleteExpenseHandler(db))

	// Waste
	protected.Get("/waste", waste.ListWasteHandler(db))
	protected.Get("/waste/:id", waste.GetWasteHandler(db))
	protected.Post("/waste", waste.CreateWasteHandler(db))
	protected.Put("/waste/:id", waste.UpdateWasteHandler(db))
	protected.Delete("/waste/:id", waste.DeleteWasteHandler(db))

	// Reports
	protected.Get("/reports/inventory", report.InventoryHandler(src))
	protected.Get("/reports/inventory/export", report.ExportInventoryHandler(src))
	protected.Get("/reports/low-stock", report.LowStockHandler(src))
	protected.Get("/reports/expiring", report.ExpiringHandler(src))
	protected.Get("/reports/daily", report.DailyHandler(db))
	protected.Get("/reports/monthly", report.MonthlyHandler(db))
	protected.Get("/reports/dashboard", report.DashboardHandler(db, src))

	// Stock capture from images
	protected.Post("/stock/upload", stock.UploadHandler(d.Store, maxUpload))
	protected.Post("/stock/analyze", stock.AnalyzeHandler(db, d.Analyzer, d.Store, maxUpload, d.Metrics))
	protected.Post("/stock/update", stock.UpdateHandler(db, d.Publisher, d.Metrics))
	protected.Get("/stock/logs", stock.ListLogsHandler(db))

	// Audit logs
	protected.Get("/audit-logs", managers, audit.ListAuditLogsHandler(db))
}
