package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/services"
)

type ProductController struct {
	catalog services.CatalogService
	logger  *zap.Logger
}

func NewProductController(catalog services.CatalogService, logger *zap.Logger) *ProductController {
	return &ProductController{catalog: catalog, logger: logger}
}

// GetProducts handles GET /products.
func (pc *ProductController) GetProducts(ctx *gin.Context) {
	products, err := pc.catalog.List(ctx.Request.Context())
	if err != nil {
		apperror.Respond(ctx, pc.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "count": len(products), "data": products})
}
