package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/fjod/go_cart/shop-api/pkg/logger"
	"github.com/rs/zerolog/log"
)

// CartService is the cart logic the handlers depend on.
type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	service CartService
}

func NewCartHandler(service CartService) *CartHandler {
	return &CartHandler{service: service}
}

// Quantities arrive as JSON numbers; 2.0 is accepted, 2.5 is not.
type AddItemRequestDTO struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type RemoveItemRequestDTO struct {
	ProductID string `json:"productId"`
}

type CartResponse struct {
	Success bool         `json:"success"`
	Cart    *domain.Cart `json:"cart"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const internalErrorMessage = "Something went wrong"

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Success: true, Cart: cart})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quantity, ok := wholeQuantity(req.Quantity)
	if !ok {
		handleServiceError(w, r, service.ErrInvalidQuantity)
		return
	}

	cart, err := h.service.AddItem(r.Context(), userID, req.ProductID, quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Success: true, Cart: cart})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quantity, ok := wholeQuantity(req.Quantity)
	if !ok {
		handleServiceError(w, r, service.ErrInvalidQuantity)
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), userID, req.ProductID, quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Success: true, Cart: cart})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RemoveItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), userID, req.ProductID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CartResponse{Success: true, Cart: cart})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Cart cleared successfully"})
}

// wholeQuantity converts a decoded JSON number to int. Fractions and values
// outside int32 are rejected; range checks against the line cap happen in
// the service.
func wholeQuantity(n float64) (int, bool) {
	if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, MessageResponse{
		Success: false,
		Message: message,
	})
}

// handleServiceError maps the service error classes to HTTP statuses.
// Anything unclassified is logged and hidden behind a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	var notFoundErr *service.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, notFoundErr.Msg)
	default:
		logger.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}
