package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"pedalo/internal/payments/service"
	apperrors "pedalo/pkg/errors"
	httputil "pedalo/pkg/http"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

type PaymentHandler struct {
	reconciler service.PaymentReconciler
	log        *logger.Logger
}

func NewPaymentHandler(reconciler service.PaymentReconciler, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		reconciler: reconciler,
		log:        log,
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requesterID, err := httputil.RequesterID(r)
	if err != nil {
		h.respondError(w, "Verify", err)
		return
	}

	var req model.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Verify", apperrors.InvalidInput("invalid request body"))
		return
	}

	booking, err := h.reconciler.Verify(r.Context(), &req, requesterID, httputil.IsAdmin(r))
	if err != nil {
		h.respondError(w, "Verify", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "error", err)
	}
}

func (h *PaymentHandler) respondError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/verify", h.Verify)
}
