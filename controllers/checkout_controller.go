package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopcart-service/apperror"
	"shopcart-service/middleware"
	"shopcart-service/models"
	"shopcart-service/services"
)

type CheckoutController struct {
	checkout services.CheckoutService
	logger   *zap.Logger
}

func NewCheckoutController(checkout services.CheckoutService, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkout, logger: logger}
}

// Checkout handles POST /checkout.
func (cc *CheckoutController) Checkout(ctx *gin.Context) {
	principal, err := middleware.GetPrincipal(ctx)
	if err != nil {
		apperror.Respond(ctx, cc.logger, apperror.ErrNotAuthorized)
		return
	}

	var req models.CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apperror.Respond(ctx, cc.logger, apperror.Validation("Name (at least 2 characters) and a valid email are required"))
		return
	}

	receipt, err := cc.checkout.Checkout(ctx.Request.Context(), principal.IdentityID, principal.IsGuest, req)
	if err != nil {
		apperror.Respond(ctx, cc.logger, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Checkout successful", "data": receipt})
}
