package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/pdfkit/internal/interfaces/http/router"
)

// PDFRoutes creates the route group for PDF endpoints. renderMiddleware only
// guards the routes that render a document.
func PDFRoutes(handler *PDFHandler, renderMiddleware ...gin.HandlerFunc) *router.DomainGroup {
	group := router.NewDomainGroup("pdf", "/pdf")

	// Reference data
	group.GET("/kinds", handler.GetKinds)
	group.GET("/paper-sizes", handler.GetPaperSizes)

	// Maintenance
	group.POST("/cleanup", handler.Cleanup)

	// Rendering
	render := group.Group("render", "")
	render.Use(renderMiddleware...)
	render.GET("/:kind/:id", handler.Print)
	render.GET("/:kind/:id/download", handler.Download)
	render.POST("/:kind/:id/save", handler.Save)

	// Stored artifacts
	group.GET("/:kind/:id/file", handler.GetFile)
	group.GET("/:kind/:id/preview", handler.GetPreview)
	group.GET("/:kind/:id/link", handler.GetDownloadURL)
	group.DELETE("/:kind/:id", handler.Delete)

	return group
}
