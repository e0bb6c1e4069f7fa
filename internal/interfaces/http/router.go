package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Counts    *CountHandler
	Transfers *TransferHandler
	Stock     *StockHandler
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	operators := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse)
	readers := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse, jwt.RoleAuditor)

	counts := api.Group("/counts")
	counts.Post("/", operators, deps.Counts.Create)
	counts.Get("/:id", readers, deps.Counts.Get)
	counts.Delete("/:id", operators, deps.Counts.Delete)
	counts.Post("/:id/lines", operators, deps.Counts.AddLine)
	counts.Put("/:id/lines/:lineId", operators, deps.Counts.UpdateLine)
	counts.Delete("/:id/lines/:lineId", operators, deps.Counts.DeleteLine)
	counts.Post("/:id/complete", operators, deps.Counts.Complete)

	transfers := api.Group("/transfers")
	transfers.Post("/", operators, deps.Transfers.Create)
	transfers.Get("/:id", readers, deps.Transfers.Get)
	transfers.Put("/:id", operators, deps.Transfers.Update)
	transfers.Delete("/:id", operators, deps.Transfers.Delete)
	transfers.Post("/:id/lines", operators, deps.Transfers.AddLine)
	transfers.Put("/:id/lines/:lineId", operators, deps.Transfers.UpdateLine)
	transfers.Delete("/:id/lines/:lineId", operators, deps.Transfers.DeleteLine)
	transfers.Post("/:id/execute", operators, deps.Transfers.Execute)

	stock := api.Group("/stock")
	stock.Get("/movements", readers, deps.Stock.Movements)
	stock.Get("/movements/export", readers, deps.Stock.Export)
	stock.Post("/reconcile", operators, deps.Stock.Reconcile)
	stock.Post("/rebuild", RequireRole(jwt.RoleAdmin), deps.Stock.Rebuild)
	stock.Post("/document-events", operators, deps.Stock.DocumentEvent)
	stock.Delete("/documents/:type/:id", operators, deps.Stock.RemoveDocument)
	stock.Get("/references/:reference", readers, deps.Stock.ByReference)
	stock.Get("/:warehouseId/:reference", readers, deps.Stock.Get)
}
