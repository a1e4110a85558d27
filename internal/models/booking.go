package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking statuses. Transitions are monotonic: CONFIRMED -> CHECKED_IN -> CHECKED_OUT,
// with direct CONFIRMED -> CHECKED_OUT allowed (check-in is optional bookkeeping).
const (
	StatusConfirmed  = "CONFIRMED"
	StatusCheckedIn  = "CHECKED_IN"
	StatusCheckedOut = "CHECKED_OUT"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID    string     `bun:"booking_id,pk" json:"booking_id"`
	TentID       string     `bun:"tent_id" json:"tent_id"`
	DeskAdminID  string     `bun:"desk_admin_id" json:"desk_admin_id"`
	Mobile       string     `bun:"mobile" json:"mobile,omitempty"`
	Notes        string     `bun:"notes" json:"notes,omitempty"`
	CheckInDate  *time.Time `bun:"check_in_date" json:"check_in_date,omitempty"`
	CheckOutDate *time.Time `bun:"check_out_date" json:"check_out_date,omitempty"`
	Status       string     `bun:"status" json:"status"`
	CheckInTime  *time.Time `bun:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `bun:"check_out_time" json:"check_out_time,omitempty"`
	IsVIP        bool       `bun:"is_vip" json:"is_vip"`
	CreatedAt    time.Time  `bun:"created_at" json:"created_at"`
}

type Member struct {
	bun.BaseModel `bun:"table:members"`

	MemberID  string `bun:"member_id,pk" json:"member_id"`
	BookingID string `bun:"booking_id" json:"booking_id"`
	Position  int    `bun:"position" json:"position"`
	Name      string `bun:"name" json:"name"`
	Age       int    `bun:"age" json:"age"`
	Gender    string `bun:"gender" json:"gender"`
}

type Tent struct {
	bun.BaseModel `bun:"table:tents"`

	TentID   string `bun:"tent_id,pk" json:"tent_id"`
	EventID  string `bun:"event_id" json:"event_id"`
	Name     string `bun:"name" json:"name"`
	Capacity int    `bun:"capacity" json:"capacity"`
}

// BookingWithMembers bundles a booking and its member rows for API responses.
type BookingWithMembers struct {
	Booking Booking  `json:"booking"`
	Members []Member `json:"members"`
}

// ExpiredBooking is one row of the overdue sweep: a still-CONFIRMED booking whose
// check-out date has passed, joined with its tent for the owning event and display name.
type ExpiredBooking struct {
	Booking   Booking
	TentName  string
	EventID   string
	GuestName string
}
