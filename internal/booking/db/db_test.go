package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/notify"
	"ms-booking/internal/scanner"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*bookingdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if err := bookingdb.Migrate(context.Background(), bunDB); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return &bookingdb.DB{Bun: bunDB}, bunDB
}

func seedTent(t *testing.T, bunDB *bun.DB, tentID, eventID, name string) {
	t.Helper()
	tent := models.Tent{TentID: tentID, EventID: eventID, Name: name, Capacity: 6}
	_, err := bunDB.NewInsert().Model(&tent).Exec(context.Background())
	require.NoError(t, err)
}

func newBooking(tentID string, checkOut *time.Time) (models.Booking, []models.Member, models.AuditLog) {
	booking := models.Booking{
		BookingID:    uuid.NewString(),
		TentID:       tentID,
		DeskAdminID:  "desk-1",
		Status:       models.StatusConfirmed,
		CheckOutDate: checkOut,
		CreatedAt:    time.Now(),
	}
	members := []models.Member{
		{MemberID: uuid.NewString(), BookingID: booking.BookingID, Position: 0, Name: "Amina", Age: 30, Gender: "F"},
		{MemberID: uuid.NewString(), BookingID: booking.BookingID, Position: 1, Name: "Tariq", Age: 34, Gender: "M"},
	}
	entry := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionCreateBooking,
		Details:   "Booking " + booking.BookingID + " created",
		UserID:    "desk-1",
		CreatedAt: time.Now(),
	}
	return booking, members, entry
}

func TestCreateBookingTxPersistsEverything(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTent(t, bunDB, "tent-1", "event-1", "T1")
	booking, members, entry := newBooking("tent-1", nil)

	err := store.CreateBookingTx(ctx, booking, members, entry)
	assert.NoError(t, err)

	got, err := store.GetBookingWithMembers(ctx, booking.BookingID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Booking.Status)
	assert.Len(t, got.Members, 2)
	assert.Equal(t, "Amina", got.Members[0].Name)

	count, err := bunDB.NewSelect().Model((*models.AuditLog)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateBookingTxIsAllOrNothing(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTent(t, bunDB, "tent-1", "event-1", "T1")
	booking, members, entry := newBooking("tent-1", nil)
	// Duplicate primary key makes the second member insert fail.
	members[1].MemberID = members[0].MemberID

	err := store.CreateBookingTx(ctx, booking, members, entry)
	assert.Error(t, err)

	bookings, err := bunDB.NewSelect().Model((*models.Booking)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, bookings)

	logs, err := bunDB.NewSelect().Model((*models.AuditLog)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, logs)
}

func TestUpdateBookingTxPairsLogWithChange(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTent(t, bunDB, "tent-1", "event-1", "T1")
	booking, members, entry := newBooking("tent-1", nil)
	require.NoError(t, store.CreateBookingTx(ctx, booking, members, entry))

	now := time.Now()
	booking.Status = models.StatusCheckedIn
	booking.CheckInTime = &now
	checkInLog := models.AuditLog{
		LogID:     uuid.NewString(),
		Action:    models.ActionCheckIn,
		Details:   "Booking " + booking.BookingID + " checked in",
		UserID:    "desk-1",
		CreatedAt: now,
	}

	err := store.UpdateBookingTx(ctx, booking, []string{"status", "check_in_time"}, checkInLog)
	assert.NoError(t, err)

	got, err := store.GetBookingByID(ctx, booking.BookingID)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, got.Status)
	assert.NotNil(t, got.CheckInTime)

	logs, err := store.GetLogsByBooking(ctx, booking.BookingID)
	assert.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestListExpiredBookings(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTent(t, bunDB, "tent-1", "event-1", "T1")
	seedTent(t, bunDB, "tent-2", "event-2", "T2")

	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	overdue, overdueMembers, overdueLog := newBooking("tent-1", &yesterday)
	require.NoError(t, store.CreateBookingTx(ctx, overdue, overdueMembers, overdueLog))

	current, currentMembers, currentLog := newBooking("tent-2", &tomorrow)
	require.NoError(t, store.CreateBookingTx(ctx, current, currentMembers, currentLog))

	// A checked-out booking past its date is not overdue.
	done, doneMembers, doneLog := newBooking("tent-2", &yesterday)
	done.Status = models.StatusCheckedOut
	require.NoError(t, store.CreateBookingTx(ctx, done, doneMembers, doneLog))

	expired, err := store.ListExpiredBookings(ctx, now)
	assert.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, overdue.BookingID, expired[0].Booking.BookingID)
	assert.Equal(t, "T1", expired[0].TentName)
	assert.Equal(t, "event-1", expired[0].EventID)
	assert.Equal(t, "Amina", expired[0].GuestName)
}

// End-to-end sweep: booking with two members in T1, checked out yesterday, never
// checked in. One warning must come out, naming the first member and the tent.
func TestExpiryScanScenario(t *testing.T) {
	store, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedTent(t, bunDB, "tent-1", "event-1", "T1")
	yesterday := time.Now().Add(-24 * time.Hour)
	booking, members, entry := newBooking("tent-1", &yesterday)
	require.NoError(t, store.CreateBookingTx(ctx, booking, members, entry))

	bus := notify.NewBus()
	var published []models.Notification
	bus.Subscribe(func(n models.Notification) { published = append(published, n) })

	sc := scanner.NewScanner(store, bus, logger.NewLogger())
	result, err := sc.Run(ctx, time.Now(), models.Identity{UserID: "desk-1", Role: models.RoleDeskAdmin})

	assert.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	require.Len(t, published, 1)
	assert.Contains(t, published[0].Message, "Amina")
	assert.Contains(t, published[0].Message, "T1")
	assert.Equal(t, models.NotificationWarning, published[0].Type)

	// The notification row is durable, and the sweep left one summary log.
	notifications, err := bunDB.NewSelect().Model((*models.Notification)(nil)).Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, notifications)

	var scanLogs []models.AuditLog
	err = bunDB.NewSelect().Model(&scanLogs).Where("action = ?", models.ActionExpiryScanRun).Scan(ctx)
	assert.NoError(t, err)
	assert.Len(t, scanLogs, 1)
}
