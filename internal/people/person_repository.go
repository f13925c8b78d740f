package people

import (
	"fleetd/internal/repository"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type PersonRepository struct {
	Repository *repository.Repository
}

func NewRepository(r *repository.Repository) *PersonRepository {
	return &PersonRepository{Repository: r}
}

func (r *PersonRepository) GetPeople() ([]models.Person, error) {
	var people []models.Person

	query := r.Repository.GoquDBWrapper.
		Select("id", "name", "email", "job_title", "created_at", "deleted_at").
		From("people").
		Where(goqu.I("deleted_at").IsNull()).
		Order(goqu.I("name").Asc())

	if err := query.Executor().ScanStructs(&people); err != nil {
		return nil, apperrors.NewStorage(err, "failed to list people")
	}

	return people, nil
}

func (r *PersonRepository) GetPerson(personID int) (*models.Person, error) {
	var person models.Person

	query := r.Repository.GoquDBWrapper.
		Select("id", "name", "email", "job_title", "created_at", "deleted_at").
		From("people").
		Where(goqu.Ex{"id": personID})

	found, err := query.Executor().ScanStruct(&person)
	if err != nil {
		return nil, apperrors.NewStorage(err, "failed to fetch person")
	}
	if !found {
		return nil, apperrors.NewNotFound("person %d not found", personID)
	}

	return &person, nil
}

// GetPersonAssets returns the assets currently in the person's custody.
func (r *PersonRepository) GetPersonAssets(personID int) ([]models.Asset, error) {
	var rows []models.FlatAssetRecord

	query := r.Repository.GoquDBWrapper.
		From(goqu.T("assets").As("a")).
		Select(
			goqu.I("a.id").As("asset_id"),
			goqu.I("a.asset_type"),
			goqu.I("a.status"),
			goqu.I("a.serial"),
			goqu.I("a.asset_tag"),
			goqu.I("a.attrs"),
			goqu.I("a.last_maintenance"),
			goqu.I("a.created_at"),
			goqu.I("a.deleted_at"),
		).
		Join(goqu.T("custody_records").As("c"), goqu.On(goqu.Ex{"c.asset_id": goqu.I("a.id")})).
		Where(goqu.Ex{"c.person_id": personID, "c.active": true}).
		Where(goqu.I("a.deleted_at").IsNull()).
		Order(goqu.I("a.id").Asc())

	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, apperrors.NewStorage(err, "failed to list person assets")
	}

	held := make([]models.Asset, 0, len(rows))
	for i := range rows {
		asset, err := rows[i].TransformToAsset()
		if err != nil {
			return nil, err
		}
		held = append(held, asset)
	}

	return held, nil
}

func (r *PersonRepository) PersistPerson(person *models.Person) error {
	query := r.Repository.GoquDBWrapper.Insert("people").
		Rows(goqu.Record{
			"name":      person.Name,
			"email":     person.Email,
			"job_title": person.JobTitle,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&person.ID); err != nil {
		return apperrors.WrapDBError(err, "failed to insert person")
	}

	return nil
}

type UpdatePersonRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	JobTitle *string `json:"job_title"`
}

func (r *PersonRepository) UpdatePerson(personID int, req UpdatePersonRequest) (*models.Person, error) {
	updates := goqu.Record{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.JobTitle != nil {
		updates["job_title"] = *req.JobTitle
	}
	if len(updates) == 0 {
		return nil, apperrors.NewValidation("no fields to update")
	}

	query := r.Repository.GoquDBWrapper.
		Update("people").
		Set(updates).
		Where(goqu.Ex{"id": personID}).
		Where(goqu.I("deleted_at").IsNull()).
		Returning("id", "name", "email", "job_title", "created_at", "deleted_at")

	var person models.Person
	found, err := query.Executor().ScanStruct(&person)
	if err != nil {
		return nil, apperrors.WrapDBError(err, "failed to update person")
	}
	if !found {
		return nil, apperrors.NewNotFound("person %d not found", personID)
	}

	return &person, nil
}

// SoftDeletePerson hides the person. Rejected while they still hold
// assets; custody must be returned first.
func (r *PersonRepository) SoftDeletePerson(personID int) error {
	var held int64
	countQuery := r.Repository.GoquDBWrapper.
		Select(goqu.COUNT("*")).
		From("custody_records").
		Where(goqu.Ex{"person_id": personID, "active": true})
	if _, err := countQuery.Executor().ScanVal(&held); err != nil {
		return apperrors.NewStorage(err, "failed to check person custody")
	}
	if held > 0 {
		return apperrors.NewConflict("person %d still holds %d assets", personID, held)
	}

	result, err := r.Repository.GoquDBWrapper.
		Update("people").
		Set(goqu.Record{"deleted_at": goqu.L("NOW()")}).
		Where(goqu.Ex{"id": personID}).
		Where(goqu.I("deleted_at").IsNull()).
		Executor().
		Exec()
	if err != nil {
		return apperrors.NewStorage(err, "failed to delete person")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorage(err, "failed to read deleted person count")
	}
	if affected == 0 {
		return apperrors.NewNotFound("person %d not found", personID)
	}

	return nil
}
