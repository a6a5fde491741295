package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	facilitieserrors "parkhub/internal/facilities/errors"
	"parkhub/internal/facilities/repository"
	"parkhub/internal/facilities/validator"
	userserrors "parkhub/internal/users/errors"
	"parkhub/pkg/config"
	apperrors "parkhub/pkg/errors"
	"parkhub/pkg/geo"
	"parkhub/pkg/model"
)

// UserStore is the slice of the user repository the facility service needs
// for ownership checks.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NearbyFacility pairs a facility with its distance from the search point.
type NearbyFacility struct {
	*model.Facility
	DistanceKm float64 `json:"distance_km"`
}

type FacilityService interface {
	Create(ctx context.Context, facility *model.Facility) error
	GetByID(ctx context.Context, id string) (*model.Facility, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Facility, int64, error)
	Update(ctx context.Context, id string, actorID string, updates *model.FacilityUpdate) error
	Delete(ctx context.Context, id string, actorID string) error
	FindNear(ctx context.Context, lat, lng, radiusKm float64) ([]*NearbyFacility, error)
}

type facilityService struct {
	repo      repository.FacilityRepository
	users     UserStore
	validator *validator.FacilityValidator
	cfg       *config.Config
}

func NewFacilityService(
	repo repository.FacilityRepository,
	users UserStore,
	validator *validator.FacilityValidator,
	cfg *config.Config,
) FacilityService {
	return &facilityService{
		repo:      repo,
		users:     users,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *facilityService) Create(ctx context.Context, facility *model.Facility) error {
	if err := s.validator.Validate(facility); err != nil {
		s.cfg.Log.Warn("Facility validation failed", "error", err)
		return apperrors.Validation("Facility validation failed", map[string]any{"error": err.Error()})
	}

	owner, err := s.users.FindByID(ctx, facility.OwnerID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", facility.OwnerID)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid owner ID format")
		}
		return apperrors.Internal("Failed to check facility owner", err)
	}
	if owner.Role != model.RoleOwner {
		return apperrors.NoAuthorization("Only owner accounts can create facilities")
	}

	if err := s.repo.Create(ctx, facility); err != nil {
		s.cfg.Log.Error("Failed to create facility", "error", err)
		return apperrors.Internal("Failed to create facility", err)
	}

	s.cfg.Log.Info("Facility created successfully",
		"id", facility.ID,
		"owner_id", facility.OwnerID,
		"capacity", facility.Capacity,
	)
	return nil
}

func (s *facilityService) GetByID(ctx context.Context, id string) (*model.Facility, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Facility ID cannot be empty")
	}

	facility, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Facility", id)
		}
		if errors.Is(err, facilitieserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid facility ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve facility", err)
	}

	return facility, nil
}

func (s *facilityService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Facility, int64, error) {
	var count int64
	var facilities []*model.Facility
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count facilities", "error", errCount)
			errCount = apperrors.Internal("Failed to count facilities", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		facilities, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list facilities", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve facilities", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return facilities, count, nil
}

func (s *facilityService) Update(ctx context.Context, id string, actorID string, updates *model.FacilityUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Facility ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != actorID {
		return apperrors.NoAuthorization("Only the facility owner can modify it")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Facility update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeFacilityUpdates(existing, updates)
	if _, err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Facility", id)
		}
		s.cfg.Log.Error("Failed to update facility", "id", id, "error", err)
		return apperrors.Internal("Failed to update facility", err)
	}

	s.cfg.Log.Info("Facility updated successfully", "id", id)
	return nil
}

func (s *facilityService) Delete(ctx context.Context, id string, actorID string) error {
	if id == "" {
		return apperrors.InvalidInput("Facility ID cannot be empty")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != actorID {
		return apperrors.NoAuthorization("Only the facility owner can delete it")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, facilitieserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Facility", id)
		}
		return apperrors.Internal("Failed to delete facility", err)
	}

	s.cfg.Log.Info("Facility deleted successfully", "id", id)
	return nil
}

func (s *facilityService) FindNear(ctx context.Context, lat, lng, radiusKm float64) ([]*NearbyFacility, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.InvalidInput("Coordinates out of range")
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.DefaultSearchRadiusKm
	}
	if radiusKm > s.cfg.MaxSearchRadiusKm {
		return nil, apperrors.InvalidInput("Search radius exceeds the maximum")
	}

	facilities, err := s.repo.ScanAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to scan facilities for search", "error", err)
		return nil, apperrors.Internal("Failed to search facilities", err)
	}

	var nearby []*NearbyFacility
	for _, f := range facilities {
		d := geo.DistanceKm(lat, lng, f.Latitude, f.Longitude)
		if d <= radiusKm {
			nearby = append(nearby, &NearbyFacility{Facility: f, DistanceKm: d})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	s.cfg.Log.Debug("Facility search completed",
		"lat", lat,
		"lng", lng,
		"radius_km", radiusKm,
		"matches", len(nearby),
	)
	return nearby, nil
}

func (s *facilityService) mergeFacilityUpdates(existing *model.Facility, updates *model.FacilityUpdate) *model.Facility {
	merged := *existing

	if updates.Capacity != nil {
		merged.Capacity = *updates.Capacity
	}
	if updates.HourlyRate != nil {
		merged.HourlyRate = *updates.HourlyRate
	}
	if updates.OpeningHours != nil {
		merged.OpeningHours = *updates.OpeningHours
	}

	return &merged
}
