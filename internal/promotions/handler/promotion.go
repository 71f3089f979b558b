package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"pedalo/internal/promotions/service"
	apperrors "pedalo/pkg/errors"
	httputil "pedalo/pkg/http"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

// PromotionHandler exposes the admin-only promotion management surface.
type PromotionHandler struct {
	service service.PromotionService
	log     *logger.Logger
}

func NewPromotionHandler(service service.PromotionService, log *logger.Logger) *PromotionHandler {
	return &PromotionHandler{
		service: service,
		log:     log,
	}
}

func (h *PromotionHandler) respondError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *PromotionHandler) requireAdmin(w http.ResponseWriter, r *http.Request, handler string) bool {
	if !httputil.IsAdmin(r) {
		h.respondError(w, handler, apperrors.Forbidden("promotion management requires the admin role"))
		return false
	}
	return true
}

func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.requireAdmin(w, r, "Create") {
		return
	}

	var promotion model.Promotion
	if err := json.NewDecoder(r.Body).Decode(&promotion); err != nil {
		h.respondError(w, "Create", apperrors.InvalidInput("invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), &promotion); err != nil {
		h.respondError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, promotion); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *PromotionHandler) GetByCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.requireAdmin(w, r, "GetByCode") {
		return
	}

	promotion, err := h.service.GetByCode(r.Context(), ps.ByName("code"))
	if err != nil {
		h.respondError(w, "GetByCode", err)
		return
	}

	if err := httputil.WriteSuccess(w, promotion); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByCode", "error", err)
	}
}

func (h *PromotionHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.requireAdmin(w, r, "GetAll") {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.respondError(w, "GetAll", err)
		return
	}

	promotions, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.respondError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, promotions); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "error", err)
	}
}

func (h *PromotionHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.requireAdmin(w, r, "Deactivate") {
		return
	}

	if err := h.service.Deactivate(r.Context(), ps.ByName("id")); err != nil {
		h.respondError(w, "Deactivate", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PromotionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/promotions", h.Create)
	router.GET("/api/v1/promotions", h.GetAll)
	router.GET("/api/v1/promotions/code/:code", h.GetByCode)
	router.POST("/api/v1/promotions/id/:id/deactivate", h.Deactivate)
}
