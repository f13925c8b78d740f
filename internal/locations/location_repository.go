package locations

import (
	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type LocationRepository struct {
	Repository *repository.Repository
}

func NewRepository(r *repository.Repository) *LocationRepository {
	return &LocationRepository{Repository: r}
}

func (r *LocationRepository) GetLocations() ([]models.Location, error) {
	var locations = []models.Location{}

	query := r.Repository.GoquDBWrapper.
		Select("id", "name", "area").
		From("locations").
		Order(goqu.I("name").Asc())

	if err := query.Executor().ScanStructs(&locations); err != nil {
		return nil, apperrors.NewStorage(err, "failed to list locations")
	}

	return locations, nil
}

func (r *LocationRepository) GetLocation(locationID int) (*models.Location, error) {
	var location models.Location

	query := r.Repository.GoquDBWrapper.
		Select("id", "name", "area").
		From("locations").
		Where(goqu.Ex{"id": locationID})

	found, err := query.Executor().ScanStruct(&location)
	if err != nil {
		return nil, apperrors.NewStorage(err, "failed to fetch location")
	}
	if !found {
		return nil, apperrors.NewNotFound("location %d not found", locationID)
	}

	return &location, nil
}

func (r *LocationRepository) PersistLocation(location *models.Location) error {
	query := r.Repository.GoquDBWrapper.Insert("locations").
		Rows(goqu.Record{
			"name": location.Name,
			"area": location.Area,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&location.ID); err != nil {
		return apperrors.WrapDBError(err, "failed to insert location")
	}

	return nil
}

type UpdateLocationRequest struct {
	Name *string `json:"name"`
	Area *string `json:"area"`
}

func (r *LocationRepository) UpdateLocation(locationID int, req UpdateLocationRequest) (*models.Location, error) {
	updates := goqu.Record{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Area != nil {
		updates["area"] = *req.Area
	}
	if len(updates) == 0 {
		return nil, apperrors.NewValidation("no fields to update")
	}

	query := r.Repository.GoquDBWrapper.
		Update("locations").
		Set(updates).
		Where(goqu.Ex{"id": locationID}).
		Returning("id", "name", "area")

	var location models.Location
	found, err := query.Executor().ScanStruct(&location)
	if err != nil {
		return nil, apperrors.WrapDBError(err, "failed to update location")
	}
	if !found {
		return nil, apperrors.NewNotFound("location %d not found", locationID)
	}

	return &location, nil
}

// RemoveLocation deletes a location. Rejected while custody records still
// reference it.
func (r *LocationRepository) RemoveLocation(locationID int) error {
	var referenced int64
	countQuery := r.Repository.GoquDBWrapper.
		Select(goqu.COUNT("*")).
		From("custody_records").
		Where(goqu.Ex{"location_id": locationID, "active": true})
	if _, err := countQuery.Executor().ScanVal(&referenced); err != nil {
		return apperrors.NewStorage(err, "failed to check location custody")
	}
	if referenced > 0 {
		return apperrors.NewConflict("location %d still holds %d assets", locationID, referenced)
	}

	result, err := r.Repository.GoquDBWrapper.
		Delete("locations").
		Where(goqu.Ex{"id": locationID}).
		Executor().
		Exec()
	if err != nil {
		return apperrors.WrapDBError(err, "failed to delete location")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorage(err, "failed to read deleted location count")
	}
	if affected == 0 {
		return apperrors.NewNotFound("location %d not found", locationID)
	}

	return nil
}
