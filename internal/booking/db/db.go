package db

import (
	"context"
	"database/sql"
	"time"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- BOOKINGS ----------------

// GetBookingByID → fetch one booking by its ID
func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("booking_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingWithMembers retrieves a booking together with its member rows.
func (d *DB) GetBookingWithMembers(ctx context.Context, id string) (*models.BookingWithMembers, error) {
	booking, err := d.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var members []models.Member
	err = d.Bun.NewSelect().
		Model(&members).
		Where("booking_id = ?", id).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &models.BookingWithMembers{
		Booking: *booking,
		Members: members,
	}, nil
}

// GetTentByID → fetch one tent by its ID
func (d *DB) GetTentByID(ctx context.Context, id string) (*models.Tent, error) {
	var tent models.Tent
	err := d.Bun.NewSelect().
		Model(&tent).
		Where("tent_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &tent, nil
}

// CreateBookingTx inserts the booking, all of its members and the audit log entry in
// one transaction. If any insert fails nothing is committed.
func (d *DB) CreateBookingTx(ctx context.Context, booking models.Booking, members []models.Member, entry models.AuditLog) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&booking).Exec(ctx); err != nil {
			return err
		}
		for i := range members {
			if _, err := tx.NewInsert().Model(&members[i]).Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(&entry).Exec(ctx)
		return err
	})
}

// UpdateBookingTx updates the given columns of the booking and appends the audit log
// entry in the same transaction. State transition and its log row commit together or
// not at all.
func (d *DB) UpdateBookingTx(ctx context.Context, booking models.Booking, columns []string, entry models.AuditLog) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model(&booking).
			Column(columns...).
			Where("booking_id = ?", booking.BookingID).
			Exec(ctx)
		if err != nil {
			return err
		}
		_, err = tx.NewInsert().Model(&entry).Exec(ctx)
		return err
	})
}

// UpdateVIP flips the VIP flag only. Deliberately not paired with an audit log entry.
func (d *DB) UpdateVIP(ctx context.Context, bookingID string, isVIP bool) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("is_vip = ?", isVIP).
		Where("booking_id = ?", bookingID).
		Exec(ctx)
	return err
}

// ---------------- EXPIRY SWEEP ----------------

// ListExpiredBookings returns bookings still CONFIRMED whose check-out date has
// passed, each joined with its tent (owning event, display name) and the name of the
// first member. Bookings without members get an empty guest name.
func (d *DB) ListExpiredBookings(ctx context.Context, now time.Time) ([]models.ExpiredBooking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("status = ?", models.StatusConfirmed).
		Where("check_out_date < ?", now).
		Order("check_out_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	expired := make([]models.ExpiredBooking, 0, len(bookings))
	for _, b := range bookings {
		row := models.ExpiredBooking{Booking: b}

		tent, err := d.GetTentByID(ctx, b.TentID)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if tent != nil {
			row.TentName = tent.Name
			row.EventID = tent.EventID
		}

		var first models.Member
		err = d.Bun.NewSelect().
			Model(&first).
			Where("booking_id = ?", b.BookingID).
			Order("position ASC").
			Limit(1).
			Scan(ctx)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if err == nil {
			row.GuestName = first.Name
		}

		expired = append(expired, row)
	}
	return expired, nil
}

// ---------------- NOTIFICATIONS / LOGS ----------------

// CreateNotification → insert one notification row
func (d *DB) CreateNotification(ctx context.Context, n models.Notification) error {
	_, err := d.Bun.NewInsert().Model(&n).Exec(ctx)
	return err
}

// CreateLog → append one audit log row
func (d *DB) CreateLog(ctx context.Context, entry models.AuditLog) error {
	_, err := d.Bun.NewInsert().Model(&entry).Exec(ctx)
	return err
}

// GetLogsByBooking → audit trail rows mentioning a booking, newest first
func (d *DB) GetLogsByBooking(ctx context.Context, bookingID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := d.Bun.NewSelect().
		Model(&logs).
		Where("details LIKE ?", "%"+bookingID+"%").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return logs, nil
}
