package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold case-folds s for case-insensitive comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
