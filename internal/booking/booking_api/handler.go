package booking_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/pass"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/scanner"
	"ms-booking/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	BookingService *booking.BookingService
	Scanner        *scanner.Scanner
	Logger         *logger.Logger
}

func NewHandler(bookingService *booking.BookingService, sc *scanner.Scanner, log *logger.Logger) *Handler {
	return &Handler{
		BookingService: bookingService,
		Scanner:        sc,
		Logger:         log,
	}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	var req booking.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body"))
		return
	}

	created, err := h.BookingService.CreateBooking(r.Context(), req, actor)
	if err != nil {
		h.writeServiceError(w, "CreateBooking", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("CreateBooking: booking %s created", created.Booking.BookingID))
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Booking ID is required"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckIn: bookingID=%s", bookingID))

	updated, err := h.BookingService.CheckIn(r.Context(), bookingID, actor)
	if err != nil {
		h.writeServiceError(w, "CheckIn", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "booking": updated})
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	bookingID := chi.URLParam(r, "bookingID")
	if bookingID == "" {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Booking ID is required"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CheckOut: bookingID=%s", bookingID))

	updated, err := h.BookingService.CheckOut(r.Context(), bookingID, actor)
	if err != nil {
		h.writeServiceError(w, "CheckOut", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "booking": updated})
}

func (h *Handler) ExtendStay(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}
	if !actor.HasAnyRole(models.RoleDeskAdmin, models.RoleTeamHead, models.RoleSuperAdmin) {
		h.writeUnauthorized(w)
		return
	}

	bookingID := chi.URLParam(r, "bookingID")

	var body struct {
		NewCheckOutDate *time.Time `json:"new_check_out_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ExtendStay: failed to decode request body: %v", err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body"))
		return
	}

	updated, err := h.BookingService.ExtendStay(r.Context(), bookingID, body.NewCheckOutDate, actor)
	if err != nil {
		h.writeServiceError(w, "ExtendStay", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "booking": updated})
}

func (h *Handler) SetVIP(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}

	bookingID := chi.URLParam(r, "bookingID")

	// IsVIP must be an actual JSON boolean: absent or mistyped is a 400.
	var body struct {
		IsVIP *bool `json:"is_vip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("is_vip must be a boolean"))
		return
	}
	if body.IsVIP == nil {
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("is_vip must be a boolean"))
		return
	}

	updated, err := h.BookingService.SetVIP(r.Context(), bookingID, *body.IsVIP, actor)
	if err != nil {
		h.writeServiceError(w, "SetVIP", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"booking": updated})
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	h.Logger.Info("API", fmt.Sprintf("GetBooking: bookingID=%s", bookingID))

	bwm, err := h.BookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.writeServiceError(w, "GetBooking", err)
		return
	}

	h.writeJSON(w, http.StatusOK, bwm)
}

// GetBookingPass renders the QR check-in pass for a booking as PNG.
func (h *Handler) GetBookingPass(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	bwm, err := h.BookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.writeServiceError(w, "GetBookingPass", err)
		return
	}

	png, err := pass.Generate(bwm.Booking)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetBookingPass: failed to generate pass: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// RunExpiryScan triggers the overdue booking sweep on demand.
func (h *Handler) RunExpiryScan(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.writeUnauthorized(w)
		return
	}
	if !actor.HasAnyRole(models.RoleDeskAdmin, models.RoleTeamHead, models.RoleSuperAdmin) {
		h.writeUnauthorized(w)
		return
	}

	result, err := h.Scanner.Run(r.Context(), time.Now(), actor)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("RunExpiryScan: %v", err))
		h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error"))
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// writeServiceError maps service errors onto the wire taxonomy: validation → 400,
// everything else (including not-found, which surfaces as a store error) → 500
// with a generic message. Detail goes to the server log only.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	if booking.IsValidation(err) {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		h.writeJSON(w, http.StatusBadRequest, utils.ErrorResponse(err.Error()))
		return
	}
	h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	h.writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal server error"))
}

func (h *Handler) writeUnauthorized(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}
