package pass

import (
	"encoding/json"
	"time"

	"ms-booking/internal/models"

	"github.com/skip2/go-qrcode"
)

// payload is what the desk scanner reads off a printed or on-screen pass.
type payload struct {
	BookingID string    `json:"booking_id"`
	TentID    string    `json:"tent_id"`
	Status    string    `json:"status"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Generate renders the check-in pass for a booking as a PNG QR code.
func Generate(booking models.Booking) ([]byte, error) {
	data, err := json.Marshal(payload{
		BookingID: booking.BookingID,
		TentID:    booking.TentID,
		Status:    booking.Status,
		IssuedAt:  time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, 256)
}
