package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDataSource is returned when a table is run without a source.
var ErrNoDataSource = errors.New("no data source configured: attach a source to the table before running it")

// ErrExportDisabled is returned when exporting a table that does not allow it.
var ErrExportDisabled = errors.New("export is not enabled for this table")

// ValidationKind names what a ValidationError rejected.
type ValidationKind string

// Validation kinds.
const (
	InvalidColumn   ValidationKind = "column"
	InvalidRelation ValidationKind = "relationship"
	InvalidFilter   ValidationKind = "filter"
)

// ValidationError rejects a request that references a key outside the
// table's whitelist or filter set.
type ValidationError struct {
	Kind ValidationKind
	Key  string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case InvalidColumn:
		return fmt.Sprintf("column '%s' is not whitelisted for ordering", e.Key)
	case InvalidRelation:
		return fmt.Sprintf("relationship '%s' is not whitelisted or does not exist", e.Key)
	default:
		return fmt.Sprintf("filter '%s' is not allowed", e.Key)
	}
}

// UnsupportedFormatError is returned for export formats without an encoder.
type UnsupportedFormatError struct {
	Format    string
	Available []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format: %s (available: %s)", e.Format, strings.Join(e.Available, ", "))
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
