package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	facilitieserrors "parkhub/internal/facilities/errors"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/model"
	"parkhub/pkg/timeutil"
)

// FacilityStore is the slice of the facility repository the engine reads.
type FacilityStore interface {
	FindByID(ctx context.Context, id string) (*model.Facility, error)
}

// ReservationStore yields confirmed reservations whose [start, end] touches
// the given window (inclusive bounds; callers refine per instant).
type ReservationStore interface {
	FindConfirmedInWindow(ctx context.Context, facilityID string, start, end time.Time) ([]*model.Reservation, error)
}

// SubscriptionStore yields the active subscriptions at a facility.
type SubscriptionStore interface {
	FindActiveByFacility(ctx context.Context, facilityID string) ([]*model.Subscription, error)
}

// SessionStore counts sessions currently occupying spaces.
type SessionStore interface {
	CountActiveByFacility(ctx context.Context, facilityID string) (int64, error)
}

// AvailabilityService answers how many spaces a facility has free.
//
// Occupancy at an instant is max(bookings containing the instant, active
// sessions): bookings and sessions usually describe the same drivers, so
// summing them would double-count, while max never understates occupancy.
type AvailabilityService interface {
	SpacesAt(ctx context.Context, facilityID string, at time.Time) (int, error)
	SpacesAtCached(ctx context.Context, facilityID string, at time.Time) (int, error)
	HasSpacesDuring(ctx context.Context, facilityID string, start, end time.Time, needed int) (bool, error)
}

type availabilityService struct {
	facilities    FacilityStore
	reservations  ReservationStore
	subscriptions SubscriptionStore
	sessions      SessionStore
	cache         *gocache.Cache
	cfg           *config.Config
}

func NewAvailabilityService(
	facilities FacilityStore,
	reservations ReservationStore,
	subscriptions SubscriptionStore,
	sessions SessionStore,
	cfg *config.Config,
) AvailabilityService {
	return &availabilityService{
		facilities:    facilities,
		reservations:  reservations,
		subscriptions: subscriptions,
		sessions:      sessions,
		cache:         gocache.New(cfg.AvailabilityCacheTTL, time.Minute),
		cfg:           cfg,
	}
}

func (s *availabilityService) SpacesAt(ctx context.Context, facilityID string, at time.Time) (int, error) {
	snapshot, err := s.load(ctx, facilityID, at, at)
	if err != nil {
		return 0, err
	}
	return snapshot.availableAt(at), nil
}

// SpacesAtCached serves browse/search traffic from a short-TTL cache. Stale
// reads are acceptable here; admission paths call SpacesAt/HasSpacesDuring
// directly.
func (s *availabilityService) SpacesAtCached(ctx context.Context, facilityID string, at time.Time) (int, error) {
	key := fmt.Sprintf("%s@%d", facilityID, at.Truncate(time.Minute).Unix())
	if cached, found := s.cache.Get(key); found {
		return cached.(int), nil
	}

	available, err := s.SpacesAt(ctx, facilityID, at)
	if err != nil {
		return 0, err
	}
	s.cache.Set(key, available, gocache.DefaultExpiration)
	return available, nil
}

func (s *availabilityService) HasSpacesDuring(ctx context.Context, facilityID string, start, end time.Time, needed int) (bool, error) {
	if !end.After(start) {
		return false, apperrors.InvalidInput("End time must be after start time")
	}
	if needed < 1 {
		return false, apperrors.InvalidInput("Needed spaces must be at least 1")
	}

	snapshot, err := s.load(ctx, facilityID, start, end)
	if err != nil {
		return false, err
	}

	// Availability only changes when a reservation or subscription slot
	// begins or ends, so sampling the window start plus every interior
	// boundary decides the whole window.
	for _, at := range snapshot.samplePoints(start, end) {
		if snapshot.availableDuring(at) < needed {
			return false, nil
		}
	}
	return true, nil
}

// snapshot holds one facility's bookings and occupancy fetched for a window.
type snapshot struct {
	facility      *model.Facility
	reservations  []*model.Reservation
	subscriptions []*model.Subscription
	activeCount   int
}

func (s *availabilityService) load(ctx context.Context, facilityID string, start, end time.Time) (*snapshot, error) {
	facility, err := s.facilities.FindByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Facility", facilityID)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid facility ID format")
		}
		return nil, apperrors.Internal("Failed to load facility", err)
	}

	reservations, err := s.reservations.FindConfirmedInWindow(ctx, facilityID, start, end)
	if err != nil {
		return nil, apperrors.Internal("Failed to load reservations", err)
	}

	subscriptions, err := s.subscriptions.FindActiveByFacility(ctx, facilityID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load subscriptions", err)
	}

	active, err := s.sessions.CountActiveByFacility(ctx, facilityID)
	if err != nil {
		return nil, apperrors.Internal("Failed to count active sessions", err)
	}

	return &snapshot{
		facility:      facility,
		reservations:  reservations,
		subscriptions: subscriptions,
		activeCount:   int(active),
	}, nil
}

func (sn *snapshot) availableAt(at time.Time) int {
	booked := 0
	for _, r := range sn.reservations {
		if r.ActiveAt(at) {
			booked++
		}
	}
	for _, sub := range sn.subscriptions {
		if sub.Covers(at) {
			booked++
		}
	}

	occupied := booked
	if sn.activeCount > occupied {
		occupied = sn.activeCount
	}

	available := sn.facility.Capacity - occupied
	if available < 0 {
		return 0
	}
	return available
}

// availableDuring is availableAt with half-open bounds: a booking ending
// exactly at the instant frees its space, so back-to-back windows never
// conflict.
func (sn *snapshot) availableDuring(at time.Time) int {
	booked := 0
	for _, r := range sn.reservations {
		if r.BooksAt(at) {
			booked++
		}
	}
	for _, sub := range sn.subscriptions {
		if sub.BooksAt(at) {
			booked++
		}
	}

	occupied := booked
	if sn.activeCount > occupied {
		occupied = sn.activeCount
	}

	available := sn.facility.Capacity - occupied
	if available < 0 {
		return 0
	}
	return available
}

// samplePoints returns the window start plus every reservation and
// subscription-slot boundary strictly inside (start, end).
func (sn *snapshot) samplePoints(start, end time.Time) []time.Time {
	points := []time.Time{start}

	inside := func(t time.Time) bool {
		return t.After(start) && t.Before(end)
	}

	for _, r := range sn.reservations {
		if inside(r.StartTime) {
			points = append(points, r.StartTime)
		}
		if inside(r.EndTime) {
			points = append(points, r.EndTime)
		}
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for !day.After(end) {
		for _, sub := range sn.subscriptions {
			for _, slot := range sub.SlotsOn(day.Weekday()) {
				for _, hhmm := range []string{slot.Start, slot.End} {
					minutes, err := timeutil.ParseHHMM(hhmm)
					if err != nil {
						continue
					}
					t := day.Add(time.Duration(minutes) * time.Minute)
					if inside(t) {
						points = append(points, t)
					}
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return points
}
