package scanner

import (
	"context"
	"fmt"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	ListExpiredBookings(ctx context.Context, now time.Time) ([]models.ExpiredBooking, error)
	CreateNotification(ctx context.Context, n models.Notification) error
	CreateLog(ctx context.Context, entry models.AuditLog) error
}

type BusPublisher interface {
	Publish(n models.Notification)
}

// Scanner detects bookings whose occupancy has silently expired: still CONFIRMED
// with a check-out date in the past. It alerts desk staff but deliberately never
// auto-checks-out; a human must act on each warning.
type Scanner struct {
	DB     DBLayer
	Bus    BusPublisher
	Logger *logger.Logger
}

func NewScanner(db DBLayer, bus BusPublisher, log *logger.Logger) *Scanner {
	return &Scanner{DB: db, Bus: bus, Logger: log}
}

// Result summarizes one sweep.
type Result struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Run sweeps for overdue bookings as of now. One WARNING notification per overdue
// booking is persisted and then broadcast; after the batch a single EXPIRY_SCAN_RUN
// audit row records the count, attributed to the actor. Notification rows are
// written one by one on purpose: a failure aborts the sweep with the error, and
// rows already written stay (the next sweep re-detects the same bookings anyway).
// An empty sweep writes nothing at all.
func (s *Scanner) Run(ctx context.Context, now time.Time, actor models.Identity) (Result, error) {
	expired, err := s.DB.ListExpiredBookings(ctx, now)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list expired bookings: %w", err)
	}

	if len(expired) == 0 {
		s.Logger.LogScan("No overdue bookings found")
		return Result{Count: 0, Message: "No overdue bookings"}, nil
	}

	for _, e := range expired {
		guest := e.GuestName
		if guest == "" {
			guest = "Guest"
		}
		tentName := e.TentName
		if tentName == "" {
			tentName = e.Booking.TentID
		}

		msg := fmt.Sprintf("%s has not checked out of %s", guest, tentName)
		if e.Booking.CheckOutDate != nil {
			msg = fmt.Sprintf("%s (due %s)", msg, e.Booking.CheckOutDate.Format("2006-01-02"))
		}

		n := models.Notification{
			NotificationID: uuid.NewString(),
			EventID:        e.EventID,
			TargetRole:     models.RoleDeskAdmin,
			Type:           models.NotificationWarning,
			Message:        msg,
			CreatedAt:      now,
		}
		if err := s.DB.CreateNotification(ctx, n); err != nil {
			return Result{}, fmt.Errorf("failed to persist overdue notification for booking %s: %w", e.Booking.BookingID, err)
		}
		s.Bus.Publish(n)
	}

	entry := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionExpiryScanRun,
		Details:   fmt.Sprintf("Expiry scan flagged %d overdue bookings", len(expired)),
		UserID:    actor.UserID,
		CreatedAt: now,
	}
	if err := s.DB.CreateLog(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("failed to record expiry scan: %w", err)
	}

	msg := fmt.Sprintf("Flagged %d overdue bookings", len(expired))
	s.Logger.LogScan(msg)
	return Result{Count: len(expired), Message: msg}, nil
}
