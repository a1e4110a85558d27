package booking_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/booking"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock implementations
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockDBLayer) GetBookingWithMembers(ctx context.Context, id string) (*models.BookingWithMembers, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingWithMembers), args.Error(1)
}

func (m *MockDBLayer) GetTentByID(ctx context.Context, id string) (*models.Tent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tent), args.Error(1)
}

func (m *MockDBLayer) CreateBookingTx(ctx context.Context, b models.Booking, members []models.Member, entry models.AuditLog) error {
	args := m.Called(ctx, b, members, entry)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateBookingTx(ctx context.Context, b models.Booking, columns []string, entry models.AuditLog) error {
	args := m.Called(ctx, b, columns, entry)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateVIP(ctx context.Context, bookingID string, isVIP bool) error {
	args := m.Called(ctx, bookingID, isVIP)
	return args.Error(0)
}

func (m *MockDBLayer) CreateNotification(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateEventViews(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

type MockKafka struct {
	mock.Mock
}

func (m *MockKafka) PublishBookingCreated(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockKafka) PublishBookingCheckedIn(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockKafka) PublishBookingCheckedOut(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockKafka) PublishBookingExtended(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func newTestService(db *MockDBLayer, cache *MockCache, kafka *MockKafka) (*booking.BookingService, *notify.Bus) {
	bus := notify.NewBus()
	svc := booking.NewBookingService(db, bus, cache, kafka, logger.NewLogger())
	return svc, bus
}

var testActor = models.Identity{UserID: "desk-1", Role: models.RoleDeskAdmin, EventScope: "event-1"}

func TestCreateBookingWithoutMembersFails(t *testing.T) {
	db := new(MockDBLayer)
	svc, _ := newTestService(db, new(MockCache), new(MockKafka))

	_, err := svc.CreateBooking(context.Background(), booking.CreateBookingRequest{
		TentID:  "tent-1",
		Members: nil,
	}, testActor)

	assert.Error(t, err)
	assert.True(t, booking.IsValidation(err))
	db.AssertNotCalled(t, "CreateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBookingWithoutTentFails(t *testing.T) {
	db := new(MockDBLayer)
	svc, _ := newTestService(db, new(MockCache), new(MockKafka))

	_, err := svc.CreateBooking(context.Background(), booking.CreateBookingRequest{
		Members: []booking.MemberRequest{{Name: "Amina", Age: 30, Gender: "F"}},
	}, testActor)

	assert.Error(t, err)
	assert.True(t, booking.IsValidation(err))
	db.AssertNotCalled(t, "GetTentByID", mock.Anything, mock.Anything)
}

func TestCreateBookingPersistsAtomically(t *testing.T) {
	db := new(MockDBLayer)
	cache := new(MockCache)
	kafka := new(MockKafka)
	svc, bus := newTestService(db, cache, kafka)

	var broadcast []models.Notification
	bus.Subscribe(func(n models.Notification) { broadcast = append(broadcast, n) })

	tent := &models.Tent{TentID: "tent-1", EventID: "event-1", Name: "T1"}
	db.On("GetTentByID", mock.Anything, "tent-1").Return(tent, nil)
	db.On("CreateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
	cache.On("InvalidateEventViews", mock.Anything, "event-1").Return(nil)
	kafka.On("PublishBookingCreated", mock.Anything).Return(nil)

	created, err := svc.CreateBooking(context.Background(), booking.CreateBookingRequest{
		TentID: "tent-1",
		Members: []booking.MemberRequest{
			{Name: "Amina", Age: 30, Gender: "F"},
			{Name: "Tariq", Age: 34, Gender: "M"},
		},
	}, testActor)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, created.Booking.Status)
	assert.Equal(t, "desk-1", created.Booking.DeskAdminID)
	assert.Len(t, created.Members, 2)
	assert.Equal(t, 0, created.Members[0].Position)
	assert.Equal(t, 1, created.Members[1].Position)

	// The audit log entry travels in the same transaction as the booking.
	db.AssertCalled(t, "CreateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(entry models.AuditLog) bool {
		return entry.Action == models.ActionCreateBooking && entry.UserID == "desk-1"
	}))

	assert.Len(t, broadcast, 1)
	assert.Equal(t, "event-1", broadcast[0].EventID)
	assert.Equal(t, models.RoleDeskAdmin, broadcast[0].TargetRole)
}

func TestCreateBookingFailedInsertPersistsNothing(t *testing.T) {
	db := new(MockDBLayer)
	svc, bus := newTestService(db, new(MockCache), new(MockKafka))

	delivered := 0
	bus.Subscribe(func(n models.Notification) { delivered++ })

	tent := &models.Tent{TentID: "tent-1", EventID: "event-1", Name: "T1"}
	db.On("GetTentByID", mock.Anything, "tent-1").Return(tent, nil)
	db.On("CreateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("member insert failed"))

	_, err := svc.CreateBooking(context.Background(), booking.CreateBookingRequest{
		TentID:  "tent-1",
		Members: []booking.MemberRequest{{Name: "Amina", Age: 30, Gender: "F"}},
	}, testActor)

	assert.Error(t, err)
	assert.False(t, booking.IsValidation(err))
	db.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
	assert.Equal(t, 0, delivered)
}

func TestCheckInThenCheckOut(t *testing.T) {
	db := new(MockDBLayer)
	cache := new(MockCache)
	kafka := new(MockKafka)
	svc, _ := newTestService(db, cache, kafka)

	tent := &models.Tent{TentID: "tent-1", EventID: "event-1", Name: "T1"}
	stored := &models.Booking{BookingID: "b1", TentID: "tent-1", Status: models.StatusConfirmed}

	db.On("GetBookingByID", mock.Anything, "b1").Return(stored, nil)
	db.On("GetTentByID", mock.Anything, "tent-1").Return(tent, nil)
	db.On("UpdateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
	cache.On("InvalidateEventViews", mock.Anything, "event-1").Return(nil)
	kafka.On("PublishBookingCheckedIn", mock.Anything).Return(nil)
	kafka.On("PublishBookingCheckedOut", mock.Anything).Return(nil)

	checkedIn, err := svc.CheckIn(context.Background(), "b1", testActor)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, checkedIn.Status)
	assert.NotNil(t, checkedIn.CheckInTime)
	firstCheckIn := *checkedIn.CheckInTime

	// The store now holds the checked-in state.
	*stored = *checkedIn

	checkedOut, err := svc.CheckOut(context.Background(), "b1", testActor)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, checkedOut.Status)
	assert.NotNil(t, checkedOut.CheckOutTime)
	assert.Equal(t, firstCheckIn, *checkedOut.CheckInTime)

	db.AssertCalled(t, "UpdateBookingTx", mock.Anything, mock.Anything, []string{"status", "check_in_time"}, mock.MatchedBy(func(entry models.AuditLog) bool {
		return entry.Action == models.ActionCheckIn
	}))
	db.AssertCalled(t, "UpdateBookingTx", mock.Anything, mock.Anything, []string{"status", "check_out_time"}, mock.MatchedBy(func(entry models.AuditLog) bool {
		return entry.Action == models.ActionCheckOut
	}))
}

func TestDirectCheckOutFromConfirmed(t *testing.T) {
	db := new(MockDBLayer)
	cache := new(MockCache)
	kafka := new(MockKafka)
	svc, _ := newTestService(db, cache, kafka)

	tent := &models.Tent{TentID: "tent-1", EventID: "event-1", Name: "T1"}
	stored := &models.Booking{BookingID: "b2", TentID: "tent-1", Status: models.StatusConfirmed}

	db.On("GetBookingByID", mock.Anything, "b2").Return(stored, nil)
	db.On("GetTentByID", mock.Anything, "tent-1").Return(tent, nil)
	db.On("UpdateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	db.On("CreateNotification", mock.Anything, mock.Anything).Return(nil)
	cache.On("InvalidateEventViews", mock.Anything, "event-1").Return(nil)
	kafka.On("PublishBookingCheckedOut", mock.Anything).Return(nil)

	checkedOut, err := svc.CheckOut(context.Background(), "b2", testActor)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, checkedOut.Status)
	assert.Nil(t, checkedOut.CheckInTime)
}

func TestNoTransitionOutOfCheckedOut(t *testing.T) {
	db := new(MockDBLayer)
	svc, _ := newTestService(db, new(MockCache), new(MockKafka))

	done := &models.Booking{BookingID: "b3", TentID: "tent-1", Status: models.StatusCheckedOut}
	db.On("GetBookingByID", mock.Anything, "b3").Return(done, nil)

	_, err := svc.CheckIn(context.Background(), "b3", testActor)
	assert.True(t, booking.IsValidation(err))

	_, err = svc.CheckOut(context.Background(), "b3", testActor)
	assert.True(t, booking.IsValidation(err))

	db.AssertNotCalled(t, "UpdateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckInMissingBooking(t *testing.T) {
	db := new(MockDBLayer)
	svc, _ := newTestService(db, new(MockCache), new(MockKafka))

	db.On("GetBookingByID", mock.Anything, "nope").Return(nil, sql.ErrNoRows)

	_, err := svc.CheckIn(context.Background(), "nope", testActor)
	assert.Error(t, err)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestExtendStayRequiresDate(t *testing.T) {
	db := new(MockDBLayer)
	svc, _ := newTestService(db, new(MockCache), new(MockKafka))

	_, err := svc.ExtendStay(context.Background(), "b1", nil, testActor)
	assert.True(t, booking.IsValidation(err))
	db.AssertNotCalled(t, "GetBookingByID", mock.Anything, mock.Anything)
}

func TestExtendStayUpdatesDateOnly(t *testing.T) {
	db := new(MockDBLayer)
	kafka := new(MockKafka)
	svc, _ := newTestService(db, new(MockCache), kafka)

	stored := &models.Booking{BookingID: "b1", TentID: "tent-1", Status: models.StatusCheckedIn}
	db.On("GetBookingByID", mock.Anything, "b1").Return(stored, nil)
	db.On("UpdateBookingTx", mock.Anything, mock.Anything, []string{"check_out_date"}, mock.Anything).Return(nil)
	kafka.On("PublishBookingExtended", mock.Anything).Return(nil)

	newDate := time.Now().Add(48 * time.Hour)
	updated, err := svc.ExtendStay(context.Background(), "b1", &newDate, testActor)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, updated.Status)
	assert.Equal(t, newDate, *updated.CheckOutDate)

	db.AssertCalled(t, "UpdateBookingTx", mock.Anything, mock.Anything, []string{"check_out_date"}, mock.MatchedBy(func(entry models.AuditLog) bool {
		return entry.Action == models.ActionExtendBooking && entry.UserID == "desk-1"
	}))
}

func TestSetVIPWritesNoAuditLog(t *testing.T) {
	db := new(MockDBLayer)
	svc, _ := newTestService(db, new(MockCache), new(MockKafka))

	stored := &models.Booking{BookingID: "b1", TentID: "tent-1", Status: models.StatusConfirmed}
	db.On("GetBookingByID", mock.Anything, "b1").Return(stored, nil)
	db.On("UpdateVIP", mock.Anything, "b1", true).Return(nil)

	updated, err := svc.SetVIP(context.Background(), "b1", true, testActor)
	assert.NoError(t, err)
	assert.True(t, updated.IsVIP)

	db.AssertNotCalled(t, "UpdateBookingTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
