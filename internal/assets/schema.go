package assets

import (
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
)

// typeSchema fixes which attributes a device type requires at creation and
// which it allows to change later. Unknown attributes are dropped, not
// rejected.
type typeSchema struct {
	required []string
	mutable  []string
}

var typeSchemas = map[models.AssetType]typeSchema{
	models.TypeComputer: {
		required: []string{"brand", "model"},
		mutable: []string{
			"name", "brand", "model", "computer_type", "cpu", "ram",
			"disk_capacity", "disk_type", "os", "mac_wifi", "mac_ethernet",
			"ip_address", "monitor_brand", "monitor_serial", "keyboard_serial",
			"mouse_serial", "condition", "acquired_at", "warranty_until", "notes",
		},
	},
	models.TypePhone: {
		required: []string{"brand", "model"},
		mutable: []string{
			"name", "brand", "model", "imei", "phone_number", "os",
			"condition", "acquired_at", "notes",
		},
	},
	models.TypePrinter: {
		required: []string{"brand", "model"},
		mutable: []string{
			"name", "brand", "model", "printer_type", "ip_address",
			"condition", "acquired_at", "notes",
		},
	},
	models.TypeRadio: {
		required: []string{"brand", "model"},
		mutable: []string{
			"brand", "model", "radio_type", "frequency",
			"condition", "acquired_at", "notes",
		},
	},
	models.TypeIPPhone: {
		required: []string{"brand", "model"},
		mutable: []string{
			"brand", "model", "extension", "mac_address",
			"condition", "acquired_at", "notes",
		},
	},
	models.TypeTablet: {
		required: []string{"brand", "model"},
		mutable: []string{
			"name", "brand", "model", "imei", "os",
			"condition", "acquired_at", "notes",
		},
	},
	models.TypeAccessory: {
		required: []string{"accessory_type"},
		mutable: []string{
			"accessory_type", "brand", "model",
			"condition", "acquired_at", "notes",
		},
	},
}

// ValidateAttrs checks the required attributes for the type are present and
// non-empty.
func ValidateAttrs(assetType models.AssetType, attrs map[string]any) error {
	schema, ok := typeSchemas[assetType]
	if !ok {
		return apperrors.NewValidation("unsupported asset type: %s", assetType)
	}

	for _, field := range schema.required {
		value, present := attrs[field]
		if !present {
			return apperrors.NewValidation("missing required attribute %q for type %s", field, assetType)
		}
		if s, isString := value.(string); isString && s == "" {
			return apperrors.NewValidation("missing required attribute %q for type %s", field, assetType)
		}
	}

	return nil
}

// FilterMutable keeps only attributes the type allows to change. Unknown
// keys are silently discarded.
func FilterMutable(assetType models.AssetType, partial map[string]any) map[string]any {
	schema, ok := typeSchemas[assetType]
	if !ok {
		return map[string]any{}
	}

	filtered := map[string]any{}
	for _, field := range schema.mutable {
		if value, present := partial[field]; present {
			filtered[field] = value
		}
	}

	return filtered
}
