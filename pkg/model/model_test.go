package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now      = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC) // a Monday
	ownerID  = "64f000000000000000000001"
	userID   = "64f000000000000000000002"
	parkID   = "64f000000000000000000003"
	weekdays = map[string][]HoursWindow{
		"1": {{Open: "08:00", Close: "18:00"}},
	}
)

func TestNewFacility(t *testing.T) {
	f, err := NewFacility(ownerID, "Central Garage", 52.52, 13.405, 50, 10, weekdays)
	require.NoError(t, err)
	assert.Equal(t, 50, f.Capacity)

	_, err = NewFacility(ownerID, "Bad", 0, 0, 0, 10, nil)
	assert.Error(t, err, "capacity below 1 must be rejected")

	_, err = NewFacility(ownerID, "Bad", 0, 0, 10, -1, nil)
	assert.Error(t, err, "negative rate must be rejected")

	_, err = NewFacility(ownerID, "Bad", 95, 0, 10, 10, nil)
	assert.Error(t, err, "latitude out of range")

	_, err = NewFacility(ownerID, "Bad", 0, 0, 10, 10, map[string][]HoursWindow{
		"1": {{Open: "18:00", Close: "08:00"}},
	})
	assert.Error(t, err, "close before open must be rejected")

	_, err = NewFacility(ownerID, "Bad", 0, 0, 10, 10, map[string][]HoursWindow{
		"7": {{Open: "08:00", Close: "18:00"}},
	})
	assert.Error(t, err, "day key outside 0-6 must be rejected")
}

func TestFacilityIsOpenAt(t *testing.T) {
	f, err := NewFacility(ownerID, "Central Garage", 52.52, 13.405, 50, 10, weekdays)
	require.NoError(t, err)

	monday10 := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	assert.True(t, f.IsOpenAt(monday10))

	monday7 := time.Date(2026, time.March, 2, 7, 59, 0, 0, time.UTC)
	assert.False(t, f.IsOpenAt(monday7))

	// Close bound is exclusive.
	monday18 := time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC)
	assert.False(t, f.IsOpenAt(monday18))

	// No windows on Tuesday.
	tuesday10 := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	assert.False(t, f.IsOpenAt(tuesday10))

	alwaysOpen, err := NewFacility(ownerID, "Open Lot", 0, 0, 5, 10, nil)
	require.NoError(t, err)
	assert.True(t, alwaysOpen.IsOpenAt(tuesday10))
}

func TestFacilityCoversDayWindow(t *testing.T) {
	f, err := NewFacility(ownerID, "Central Garage", 52.52, 13.405, 50, 10, weekdays)
	require.NoError(t, err)

	// Monday 09:00-17:00 inside 08:00-18:00.
	assert.True(t, f.CoversDayWindow(time.Monday, 540, 1020))
	// Slot spilling past close.
	assert.False(t, f.CoversDayWindow(time.Monday, 540, 1100))
	// Day with no windows.
	assert.False(t, f.CoversDayWindow(time.Tuesday, 540, 1020))
}

func TestNewReservation(t *testing.T) {
	start := now.Add(2 * time.Hour)
	end := start.Add(2 * time.Hour)

	r, err := NewReservation(userID, parkID, start, end, 20, now)
	require.NoError(t, err)
	assert.Equal(t, ReservationConfirmed, r.Status)

	_, err = NewReservation(userID, parkID, start, start, 20, now)
	assert.Error(t, err, "zero-length window")

	_, err = NewReservation(userID, parkID, now.Add(-time.Hour), end, 20, now)
	assert.Error(t, err, "start in the past")

	_, err = NewReservation(userID, parkID, start, start.Add(10*time.Minute), 20, now)
	assert.Error(t, err, "below 15 minutes")

	_, err = NewReservation(userID, parkID, start, start.Add(25*time.Hour), 20, now)
	assert.Error(t, err, "above 24 hours")

	_, err = NewReservation(userID, parkID, start, end, 0, now)
	assert.Error(t, err, "non-positive amount")
}

func TestReservationTransitions(t *testing.T) {
	r := &Reservation{Status: ReservationPending}
	require.NoError(t, r.TransitionTo(ReservationConfirmed))
	require.NoError(t, r.TransitionTo(ReservationCompleted))

	assert.Error(t, r.TransitionTo(ReservationCancelled), "completed is terminal")

	r = &Reservation{Status: ReservationPending}
	require.NoError(t, r.TransitionTo(ReservationCancelled))
	assert.Error(t, r.TransitionTo(ReservationConfirmed), "cancelled is terminal")

	r = &Reservation{Status: ReservationPending}
	assert.Error(t, r.TransitionTo(ReservationCompleted), "pending cannot complete directly")
}

func TestReservationActiveAt(t *testing.T) {
	start := now.Add(time.Hour)
	end := start.Add(2 * time.Hour)
	r := &Reservation{Status: ReservationConfirmed, StartTime: start, EndTime: end}

	assert.True(t, r.ActiveAt(start))
	assert.True(t, r.ActiveAt(end), "counting at an instant is inclusive of the end")
	assert.False(t, r.ActiveAt(end.Add(time.Minute)))
	assert.False(t, r.ActiveAt(start.Add(-time.Minute)))

	r.Status = ReservationCancelled
	assert.False(t, r.ActiveAt(start))
}

func TestNewSubscription(t *testing.T) {
	slots := map[string][]Slot{"1": {{Start: "09:00", End: "17:00"}}}
	startDate := now.AddDate(0, 0, 1)

	s, err := NewSubscription(userID, parkID, slots, 3, startDate, 80, now)
	require.NoError(t, err)
	assert.Equal(t, SubscriptionActive, s.Status)
	assert.Equal(t, startDate.AddDate(0, 3, 0), s.EndDate)
	assert.InDelta(t, 240, s.TotalAmount, 1e-9)

	_, err = NewSubscription(userID, parkID, slots, 0, startDate, 80, now)
	assert.Error(t, err, "months below 1")

	_, err = NewSubscription(userID, parkID, slots, 13, startDate, 80, now)
	assert.Error(t, err, "months above 12")

	_, err = NewSubscription(userID, parkID, map[string][]Slot{}, 3, startDate, 80, now)
	assert.Error(t, err, "empty slot table")

	_, err = NewSubscription(userID, parkID, map[string][]Slot{
		"1": {{Start: "17:00", End: "09:00"}},
	}, 3, startDate, 80, now)
	assert.Error(t, err, "slot end before start")

	_, err = NewSubscription(userID, parkID, slots, 3, now.AddDate(0, 0, -2), 80, now)
	assert.Error(t, err, "start date in the past")

	_, err = NewSubscription(userID, parkID, slots, 3, startDate, 0, now)
	assert.Error(t, err, "non-positive monthly amount")
}

func TestSubscriptionCovers(t *testing.T) {
	slots := map[string][]Slot{"1": {{Start: "09:00", End: "17:00"}}}
	s := &Subscription{
		Status:      SubscriptionActive,
		WeeklySlots: slots,
		StartDate:   now.AddDate(0, 0, -7),
		EndDate:     now.AddDate(0, 3, 0),
	}

	monday9 := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	monday17 := time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC)
	assert.True(t, s.Covers(monday9), "slot start is inclusive")
	assert.True(t, s.Covers(monday17), "slot end is inclusive")
	assert.False(t, s.Covers(monday17.Add(time.Minute)))

	tuesday10 := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	assert.False(t, s.Covers(tuesday10))

	s.Status = SubscriptionCancelled
	assert.False(t, s.Covers(monday9))
}

func TestWeeklySlotMinutes(t *testing.T) {
	slots := map[string][]Slot{
		"1": {{Start: "09:00", End: "17:00"}},
		"3": {{Start: "08:00", End: "10:30"}},
	}
	assert.Equal(t, 8*60+150, WeeklySlotMinutes(slots))
}

func TestSessionLifecycle(t *testing.T) {
	resEnd := now.Add(4 * time.Hour)
	res := &Reservation{ID: "64f000000000000000000009", Status: ReservationConfirmed, EndTime: resEnd}

	s, err := NewParkingSession(userID, parkID, now, ReservationAuth(res))
	require.NoError(t, err)
	assert.Equal(t, res.ID, s.ReservationID)
	require.NotNil(t, s.AuthorizedEnd)
	assert.True(t, s.AuthorizedEnd.Equal(resEnd))

	assert.False(t, s.Overstayed(resEnd))
	assert.True(t, s.Overstayed(resEnd.Add(time.Minute)))

	require.NoError(t, s.Close(now.Add(2*time.Hour), 20, false))
	assert.Equal(t, SessionCompleted, s.Status)
	assert.Error(t, s.Close(now.Add(3*time.Hour), 30, false), "completed is terminal")

	// Subscription entries carry no reservation id and no authorized end.
	sub := &Subscription{Status: SubscriptionActive}
	s2, err := NewParkingSession(userID, parkID, now, SubscriptionAuth(sub))
	require.NoError(t, err)
	assert.Empty(t, s2.ReservationID)
	assert.Nil(t, s2.AuthorizedEnd)
	assert.False(t, s2.Overstayed(now.Add(100*time.Hour)))

	_, err = NewParkingSession(userID, parkID, now, NoAuth())
	assert.Error(t, err, "no authorization")
}

func TestAuthorizationAuthorizedEnd(t *testing.T) {
	end := now.Add(3 * time.Hour)
	res := &Reservation{EndTime: end}

	got := ReservationAuth(res).AuthorizedEnd()
	require.NotNil(t, got)
	assert.True(t, got.Equal(end))

	assert.Nil(t, SubscriptionAuth(&Subscription{}).AuthorizedEnd())
	assert.Nil(t, NoAuth().AuthorizedEnd())
}
