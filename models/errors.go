package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInsufficientData signals that the series is too short for the requested
// window. Recoverable: the caller should wait for more bars.
var ErrInsufficientData = errors.New("insufficient data")

// ErrModelInitialization signals that the network architecture could not be
// constructed. Fatal: nothing works without a usable model.
var ErrModelInitialization = errors.New("model initialization failed")

// MissingFeatureError reports required feature columns absent from the input
// series. This is a caller configuration bug and is always surfaced.
type MissingFeatureError struct {
	Columns []string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing features: %s", strings.Join(e.Columns, ", "))
}

// VersionNotFoundError reports a requested model version absent from storage.
// Recoverable: the caller falls back to the latest version.
type VersionNotFoundError struct {
	Version int
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("model version %d not found", e.Version)
}
