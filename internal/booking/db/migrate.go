package db

import (
	"context"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the booking store tables if they do not exist yet.
func Migrate(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Tent)(nil),
		(*models.Booking)(nil),
		(*models.Member)(nil),
		(*models.Notification)(nil),
		(*models.AuditLog)(nil),
	}

	for _, model := range tables {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}
