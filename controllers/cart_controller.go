package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/middleware"
	"shopcart-service/models"
	"shopcart-service/services"
)

// CartController handles HTTP requests for the caller's cart.
type CartController struct {
	carts  services.CartService
	logger *zap.Logger
}

func NewCartController(carts services.CartService, logger *zap.Logger) *CartController {
	return &CartController{carts: carts, logger: logger}
}

// AddToCart handles POST /cart.
func (cc *CartController) AddToCart(ctx *gin.Context) {
	principal, ok := cc.principal(ctx)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperror.Respond(ctx, cc.logger, apperror.Validation("Product ID and a quantity of at least 1 are required"))
		return
	}

	item, created, err := cc.carts.Add(ctx.Request.Context(), principal.IdentityID, req.ProductID, req.Qty)
	if err != nil {
		apperror.Respond(ctx, cc.logger, err)
		return
	}

	if created {
		ctx.JSON(http.StatusCreated, gin.H{"success": true, "message": "Item added to cart", "data": item})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Cart updated successfully", "data": item})
}

// GetCart handles GET /cart. count is the number of lines.
func (cc *CartController) GetCart(ctx *gin.Context) {
	principal, ok := cc.principal(ctx)
	if !ok {
		return
	}

	view, err := cc.carts.List(ctx.Request.Context(), principal.IdentityID)
	if err != nil {
		apperror.Respond(ctx, cc.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   view.Lines,
		"data":    view.Items,
		"total":   view.Total,
	})
}

// RemoveFromCart handles DELETE /cart/:lineId.
func (cc *CartController) RemoveFromCart(ctx *gin.Context) {
	principal, ok := cc.principal(ctx)
	if !ok {
		return
	}

	if err := cc.carts.Remove(ctx.Request.Context(), principal.IdentityID, ctx.Param("lineId")); err != nil {
		apperror.Respond(ctx, cc.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Item removed from cart"})
}

// MergeCart handles POST /cart/merge. count is the total quantity.
func (cc *CartController) MergeCart(ctx *gin.Context) {
	principal, ok := cc.principal(ctx)
	if !ok {
		return
	}

	var req models.MergeCartRequest
	// A missing or unreadable body is an empty local cart, not an error.
	_ = ctx.ShouldBindJSON(&req)

	result, err := cc.carts.Merge(ctx.Request.Context(), principal.IdentityID, req.Lines())
	if err != nil {
		apperror.Respond(ctx, cc.logger, err)
		return
	}

	message := "No local cart to merge"
	if len(req.LocalCart) > 0 {
		message = fmt.Sprintf("Merged %d items from local cart", result.Merged)
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    result.Cart.Items,
		"total":   result.Cart.Total,
		"count":   result.Cart.Quantity,
		"merged":  result.Merged,
	})
}

func (cc *CartController) principal(ctx *gin.Context) (*services.Principal, bool) {
	p, err := middleware.GetPrincipal(ctx)
	if err != nil {
		apperror.Respond(ctx, cc.logger, apperror.ErrNotAuthorized)
		return nil, false
	}
	return p, true
}
