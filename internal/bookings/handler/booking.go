package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"pedalo/internal/bookings/service"
	apperrors "pedalo/pkg/errors"
	httputil "pedalo/pkg/http"
	"pedalo/pkg/logger"
	"pedalo/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) respondError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requesterID, err := httputil.RequesterID(r)
	if err != nil {
		h.respondError(w, "Quote", err)
		return
	}

	var req model.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Quote", apperrors.InvalidInput("invalid request body"))
		return
	}
	req.UserID = requesterID

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		h.respondError(w, "Quote", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Quote", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requesterID, err := httputil.RequesterID(r)
	if err != nil {
		h.respondError(w, "Create", err)
		return
	}

	var req model.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Create", apperrors.InvalidInput("invalid request body"))
		return
	}
	req.UserID = requesterID

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requesterID, err := httputil.RequesterID(r)
	if err != nil {
		h.respondError(w, "GetByID", err)
		return
	}

	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"), requesterID, httputil.IsAdmin(r))
	if err != nil {
		h.respondError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requesterID, err := httputil.RequesterID(r)
	if err != nil {
		h.respondError(w, "List", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.respondError(w, "List", err)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		h.respondError(w, "List", err)
		return
	}
	// Owner listings only narrow by status and date; identity filters are
	// overridden with the requester downstream.
	filter.ReferenceCode = ""
	filter.GatewayPaymentID = ""
	filter.AssetID = ""

	bookings, total, err := h.service.ListForUser(r.Context(), requesterID, filter, limit, offset)
	if err != nil {
		h.respondError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *BookingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !httputil.IsAdmin(r) {
		h.respondError(w, "Search", apperrors.Forbidden("booking search requires the admin role"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.respondError(w, "Search", err)
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		h.respondError(w, "Search", err)
		return
	}

	bookings, total, err := h.service.AdminSearch(r.Context(), filter, limit, offset)
	if err != nil {
		h.respondError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "error", err)
	}
}

func filterFromQuery(r *http.Request) (*model.BookingFilter, error) {
	query := r.URL.Query()
	filter := &model.BookingFilter{
		UserID:           query.Get("user_id"),
		AssetID:          query.Get("asset_id"),
		Status:           query.Get("status"),
		ReferenceCode:    query.Get("reference_code"),
		GatewayPaymentID: query.Get("gateway_payment_id"),
	}
	if s := query.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid from parameter: " + s)
		}
		filter.From = &t
	}
	if s := query.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid to parameter: " + s)
		}
		filter.To = &t
	}
	return filter, nil
}

func (h *BookingHandler) StartRide(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.lifecycle(w, r, ps, "StartRide", h.service.StartRide)
}

func (h *BookingHandler) EndRide(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.lifecycle(w, r, ps, "EndRide", h.service.EndRide)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.lifecycle(w, r, ps, "Cancel", h.service.Cancel)
}

type lifecycleOp func(ctx context.Context, id, requesterID string, admin bool) (*model.Booking, error)

func (h *BookingHandler) lifecycle(w http.ResponseWriter, r *http.Request, ps httprouter.Params, name string, op lifecycleOp) {
	requesterID, err := httputil.RequesterID(r)
	if err != nil {
		h.respondError(w, name, err)
		return
	}

	booking, err := op(r.Context(), ps.ByName("id"), requesterID, httputil.IsAdmin(r))
	if err != nil {
		h.respondError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", name, "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/quote", h.Quote)
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/start", h.StartRide)
	router.POST("/api/v1/bookings/id/:id/end", h.EndRide)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/bookings/admin/search", h.Search)
}
