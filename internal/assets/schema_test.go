package assets

import (
	"testing"

	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateAttrsRequiresBrandAndModel(t *testing.T) {
	err := ValidateAttrs(models.TypeComputer, map[string]any{"brand": "Dell"})

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Contains(t, err.Error(), "model")
}

func TestValidateAttrsRejectsEmptyRequiredValue(t *testing.T) {
	err := ValidateAttrs(models.TypePhone, map[string]any{"brand": "", "model": "G5"})

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestValidateAttrsAcceptsCompleteComputer(t *testing.T) {
	attrs := map[string]any{
		"brand": "Dell",
		"model": "Latitude 5440",
		"cpu":   "i5-1345U",
		"ram":   "16GB",
	}

	assert.NoError(t, ValidateAttrs(models.TypeComputer, attrs))
}

func TestValidateAttrsAccessoryRequiresAccessoryType(t *testing.T) {
	err := ValidateAttrs(models.TypeAccessory, map[string]any{"brand": "Logitech"})

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	assert.NoError(t, ValidateAttrs(models.TypeAccessory, map[string]any{"accessory_type": "headset"}))
}

func TestValidateAttrsUnknownType(t *testing.T) {
	err := ValidateAttrs(models.AssetType("drone"), map[string]any{})

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestFilterMutableDropsUnknownKeys(t *testing.T) {
	filtered := FilterMutable(models.TypeComputer, map[string]any{
		"ram":        "32GB",
		"serial":     "SHOULD-NOT-PASS",
		"status":     "retired",
		"deleted_at": "2026-01-01",
	})

	assert.Equal(t, map[string]any{"ram": "32GB"}, filtered)
}

func TestFilterMutableKeepsAllowedKeys(t *testing.T) {
	partial := map[string]any{
		"name":       "reception printer",
		"ip_address": "10.0.0.12",
	}

	filtered := FilterMutable(models.TypePrinter, partial)

	assert.Equal(t, partial, filtered)
}

func TestFilterMutableUnknownTypeDropsEverything(t *testing.T) {
	filtered := FilterMutable(models.AssetType("drone"), map[string]any{"brand": "DJI"})

	assert.Empty(t, filtered)
}
