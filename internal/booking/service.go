package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	GetBookingWithMembers(ctx context.Context, id string) (*models.BookingWithMembers, error)
	GetTentByID(ctx context.Context, id string) (*models.Tent, error)
	CreateBookingTx(ctx context.Context, booking models.Booking, members []models.Member, entry models.AuditLog) error
	UpdateBookingTx(ctx context.Context, booking models.Booking, columns []string, entry models.AuditLog) error
	UpdateVIP(ctx context.Context, bookingID string, isVIP bool) error
	CreateNotification(ctx context.Context, n models.Notification) error
}

// BusPublisher is the live fan-out side of a notification; the durable row is
// written through DBLayer before publishing.
type BusPublisher interface {
	Publish(n models.Notification)
}

// CacheInvalidator drops cached dashboard views after a state transition.
type CacheInvalidator interface {
	InvalidateEventViews(ctx context.Context, eventID string) error
}

type KafkaPublisher interface {
	PublishBookingCreated(booking models.Booking) error
	PublishBookingCheckedIn(booking models.Booking) error
	PublishBookingCheckedOut(booking models.Booking) error
	PublishBookingExtended(booking models.Booking) error
}

// BookingService enforces the booking state machine:
// CONFIRMED --check-in--> CHECKED_IN --check-out--> CHECKED_OUT, with direct
// CONFIRMED --check-out--> CHECKED_OUT allowed and no transition out of
// CHECKED_OUT. Every state change commits together with its audit log row.
type BookingService struct {
	DB     DBLayer
	Bus    BusPublisher
	Cache  CacheInvalidator
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewBookingService(db DBLayer, bus BusPublisher, cache CacheInvalidator, kafka KafkaPublisher, log *logger.Logger) *BookingService {
	return &BookingService{DB: db, Bus: bus, Cache: cache, Kafka: kafka, Logger: log}
}

type CreateBookingRequest struct {
	TentID       string          `json:"tent_id"`
	Members      []MemberRequest `json:"members"`
	Mobile       string          `json:"mobile,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CheckInDate  *time.Time      `json:"check_in_date,omitempty"`
	CheckOutDate *time.Time      `json:"check_out_date,omitempty"`
}

type MemberRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// CreateBooking inserts a CONFIRMED booking, all of its members and the
// CREATE_BOOKING audit entry atomically. Nothing is persisted on validation
// failure and nothing partial survives a failed insert.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest, actor models.Identity) (*models.BookingWithMembers, error) {
	if req.TentID == "" {
		return nil, NewValidationError("tent_id is required")
	}
	if len(req.Members) == 0 {
		return nil, NewValidationError("at least one member is required")
	}

	tent, err := s.DB.GetTentByID(ctx, req.TentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tent %s: %w", req.TentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load tent %s: %w", req.TentID, err)
	}

	booking := models.Booking{
		BookingID:    uuid.NewString(),
		TentID:       req.TentID,
		DeskAdminID:  actor.UserID,
		Mobile:       req.Mobile,
		Notes:        req.Notes,
		CheckInDate:  req.CheckInDate,
		CheckOutDate: req.CheckOutDate,
		Status:       models.StatusConfirmed,
		CreatedAt:    time.Now(),
	}

	members := make([]models.Member, 0, len(req.Members))
	for i, m := range req.Members {
		members = append(members, models.Member{
			MemberID:  uuid.NewString(),
			BookingID: booking.BookingID,
			Position:  i,
			Name:      m.Name,
			Age:       m.Age,
			Gender:    m.Gender,
		})
	}

	entry := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionCreateBooking,
		Details:   fmt.Sprintf("Booking %s created for tent %s with %d members", booking.BookingID, booking.TentID, len(members)),
		UserID:    actor.UserID,
		CreatedAt: time.Now(),
	}

	if err := s.DB.CreateBookingTx(ctx, booking, members, entry); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.Logger.LogBooking(models.ActionCreateBooking, booking.BookingID, fmt.Sprintf("created for tent %s", booking.TentID))

	s.notify(ctx, models.Notification{
		EventID:    tent.EventID,
		TargetRole: models.RoleDeskAdmin,
		Type:       models.NotificationSuccess,
		Message:    fmt.Sprintf("New booking for %s (%s)", tent.Name, members[0].Name),
	})
	s.invalidateViews(ctx, tent.EventID)
	if err := s.Kafka.PublishBookingCreated(booking); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish booking created event: %v", err))
	}

	return &models.BookingWithMembers{Booking: booking, Members: members}, nil
}

// CheckIn marks the booking CHECKED_IN and stamps CheckInTime. Not idempotent:
// re-invoking overwrites the timestamp and appends another audit row.
func (s *BookingService) CheckIn(ctx context.Context, bookingID string, actor models.Identity) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCheckedOut {
		return nil, NewValidationError("booking is already checked out")
	}

	now := time.Now()
	booking.Status = models.StatusCheckedIn
	booking.CheckInTime = &now

	entry := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionCheckIn,
		Details:   fmt.Sprintf("Booking %s checked in", bookingID),
		UserID:    actor.UserID,
		CreatedAt: now,
	}
	if err := s.DB.UpdateBookingTx(ctx, *booking, []string{"status", "check_in_time"}, entry); err != nil {
		return nil, fmt.Errorf("failed to check in booking %s: %w", bookingID, err)
	}
	s.Logger.LogBooking(models.ActionCheckIn, bookingID, "guests checked in")

	s.afterTransition(ctx, booking, models.ActionCheckIn)
	if err := s.Kafka.PublishBookingCheckedIn(*booking); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish check-in event: %v", err))
	}
	return booking, nil
}

// CheckOut marks the booking CHECKED_OUT and stamps CheckOutTime. Legal from both
// CONFIRMED (direct checkout) and CHECKED_IN.
func (s *BookingService) CheckOut(ctx context.Context, bookingID string, actor models.Identity) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCheckedOut {
		return nil, NewValidationError("booking is already checked out")
	}

	now := time.Now()
	booking.Status = models.StatusCheckedOut
	booking.CheckOutTime = &now

	entry := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionCheckOut,
		Details:   fmt.Sprintf("Booking %s checked out", bookingID),
		UserID:    actor.UserID,
		CreatedAt: now,
	}
	if err := s.DB.UpdateBookingTx(ctx, *booking, []string{"status", "check_out_time"}, entry); err != nil {
		return nil, fmt.Errorf("failed to check out booking %s: %w", bookingID, err)
	}
	s.Logger.LogBooking(models.ActionCheckOut, bookingID, "guests checked out")

	s.afterTransition(ctx, booking, models.ActionCheckOut)
	if err := s.Kafka.PublishBookingCheckedOut(*booking); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish check-out event: %v", err))
	}
	return booking, nil
}

// ExtendStay moves the check-out date without touching the status. Only legal
// while the booking is CONFIRMED or CHECKED_IN.
func (s *BookingService) ExtendStay(ctx context.Context, bookingID string, newCheckOutDate *time.Time, actor models.Identity) (*models.Booking, error) {
	if bookingID == "" {
		return nil, NewValidationError("booking_id is required")
	}
	if newCheckOutDate == nil {
		return nil, NewValidationError("new_check_out_date is required")
	}

	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCheckedOut {
		return nil, NewValidationError("cannot extend a checked-out booking")
	}

	booking.CheckOutDate = newCheckOutDate

	entry := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionExtendBooking,
		Details:   fmt.Sprintf("Booking %s extended to %s by %s", bookingID, newCheckOutDate.Format(time.RFC3339), actor.UserID),
		UserID:    actor.UserID,
		CreatedAt: time.Now(),
	}
	if err := s.DB.UpdateBookingTx(ctx, *booking, []string{"check_out_date"}, entry); err != nil {
		return nil, fmt.Errorf("failed to extend booking %s: %w", bookingID, err)
	}
	s.Logger.LogBooking(models.ActionExtendBooking, bookingID, fmt.Sprintf("check-out moved to %s", newCheckOutDate.Format(time.RFC3339)))

	if err := s.Kafka.PublishBookingExtended(*booking); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish extend event: %v", err))
	}
	return booking, nil
}

// SetVIP flips the VIP flag. VIP changes are deliberately not audited.
func (s *BookingService) SetVIP(ctx context.Context, bookingID string, isVIP bool, actor models.Identity) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := s.DB.UpdateVIP(ctx, bookingID, isVIP); err != nil {
		return nil, fmt.Errorf("failed to update VIP flag for booking %s: %w", bookingID, err)
	}
	booking.IsVIP = isVIP
	return booking, nil
}

// GetBooking returns a booking with its members.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.BookingWithMembers, error) {
	bwm, err := s.DB.GetBookingWithMembers(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		return nil, err
	}
	return bwm, nil
}

func (s *BookingService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	return booking, nil
}

// afterTransition runs the best-effort side effects of a successful check-in or
// check-out: a live notification scoped to the tent's event plus cache
// invalidation. Failures here never fail the committed transition.
func (s *BookingService) afterTransition(ctx context.Context, booking *models.Booking, action string) {
	tent, err := s.DB.GetTentByID(ctx, booking.TentID)
	if err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("Failed to load tent %s for notification: %v", booking.TentID, err))
		return
	}

	verb := "checked in"
	if action == models.ActionCheckOut {
		verb = "checked out"
	}
	s.notify(ctx, models.Notification{
		EventID:    tent.EventID,
		TargetRole: models.RoleDeskAdmin,
		Type:       models.NotificationInfo,
		Message:    fmt.Sprintf("Booking at %s %s", tent.Name, verb),
	})
	s.invalidateViews(ctx, tent.EventID)
}

// notify persists the notification for history and then broadcasts it live.
func (s *BookingService) notify(ctx context.Context, n models.Notification) {
	n.NotificationID = uuid.NewString()
	n.CreatedAt = time.Now()
	if err := s.DB.CreateNotification(ctx, n); err != nil {
		s.Logger.Error("NOTIFY", fmt.Sprintf("Failed to persist notification: %v", err))
		return
	}
	s.Bus.Publish(n)
}

func (s *BookingService) invalidateViews(ctx context.Context, eventID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateEventViews(ctx, eventID); err != nil {
		s.Logger.Error("CACHE", fmt.Sprintf("Failed to invalidate views for event %s: %v", eventID, err))
	}
}
