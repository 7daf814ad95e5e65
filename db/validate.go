package db

import (
	"github.com/stratadb/strata/core"
)

// validateRow checks a normalized document against the schema and returns
// it with coercions applied. excludeID skips one stored row during the
// uniqueness scan, so a row under update does not collide with itself.
func validateRow(schema *core.Schema, data map[string]any, rows []core.Row, excludeID uint64) (map[string]any, error) {
	if !schema.Flexible {
		for field := range data {
			if _, ok := schema.Fields[field]; !ok {
				return nil, core.Validationf("field `%s` is not part of the schema", field)
			}
		}
	}

	for field, spec := range schema.Fields {
		value, present := data[field]
		if !present || value == nil {
			if spec.Required {
				return nil, core.Validationf("field `%s` is required", field)
			}
			continue
		}

		if !spec.Type.Matches(value) {
			coerced, ok := spec.Type.Coerce(value)
			if !ok {
				return nil, core.Validationf("field `%s` must be of type %s", field, spec.Type)
			}
			data[field] = coerced
			value = coerced
		}

		if spec.Unique {
			for _, row := range rows {
				if row.ID == excludeID {
					continue
				}
				if existing, ok := row.Data[field]; ok && core.Equal(existing, value) {
					return nil, core.Validationf("field `%s` must be unique", field)
				}
			}
		}
	}

	return data, nil
}
