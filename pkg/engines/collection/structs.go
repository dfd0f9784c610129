package collection

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// FromStructs converts a slice of structs (or maps) into rows. Field names
// follow `mapstructure` tags when present.
func FromStructs[T any](items []T) ([]core.Row, error) {
	rows := make([]core.Row, 0, len(items))
	for i, item := range items {
		row := make(core.Row)
		if err := mapstructure.Decode(item, &row); err != nil {
			return nil, fmt.Errorf("failed to convert item %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
