package custody

import (
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
)

// ValidateHolderPolicy enforces the per-type holder rules: printers are
// held by locations only, every other type needs a person at a location.
func ValidateHolderPolicy(assetType models.AssetType, holder models.Holder) error {
	if holder.LocationID == 0 {
		return apperrors.NewValidation("location_id is required")
	}

	if assetType.LocationOnly() {
		if holder.PersonID != nil {
			return apperrors.NewValidation("%s assets can only be assigned to a location", assetType)
		}
		return nil
	}

	if holder.PersonID == nil {
		return apperrors.NewValidation("person_id is required for %s assets", assetType)
	}

	return nil
}
