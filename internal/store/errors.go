package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// IsBusy reports whether err is a SQLITE_BUSY or "database is locked"
// error. Both are transient and worth retrying.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
