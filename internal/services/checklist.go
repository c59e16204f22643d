package services

import (
	"sort"

	"agencycrm/internal/models"
)

// MissingFields returns every required field of spec whose value in the
// merged metadata is absent (missing, nil or empty string). The list is
// sorted so rejection messages are stable.
func MissingFields(spec models.FieldSpec, merged models.Metadata) []string {
	var missing []string
	for name, cfg := range spec {
		if cfg.IsRequired() && !merged.Has(name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
