package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// AdjustmentRequest records a manual stock adjustment.
type AdjustmentRequest struct {
	ProductID int64        `json:"product_id" validate:"required,gt=0"`
	Type      MovementType `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT"`
	Quantity  int          `json:"quantity" validate:"required"`
	Reason    string       `json:"reason" validate:"required,max=200"`
	Reference string       `json:"reference" validate:"required,max=64"`
}

// Handler exposes the stock endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validate,
		rbac:     rbac,
	}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("inventory.view"))
		r.Get("/inventory/{productID}/stock", h.Stock)
		r.Get("/inventory/{productID}/movements", h.Movements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("inventory.adjust"))
		r.Post("/inventory/movements", h.RecordMovement)
	})
}

func (h *Handler) Stock(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathProductID(w, r)
	if !ok {
		return
	}
	stock, err := h.service.CurrentStock(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"stock":      stock,
	})
}

func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.pathProductID(w, r)
	if !ok {
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	movements, err := h.service.History(r.Context(), productID, limit)
	if err != nil {
		h.logger.Error("list movements failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"movements":  movements,
	})
}

func (h *Handler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	movement, err := h.service.RecordMovement(r.Context(), MovementInput{
		ProductID: req.ProductID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) pathProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid product id")
		return 0, false
	}
	return id, true
}
