package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection marks host collaborator failures: unreachable command
	// channel or an unmet minimum version requirement.
	ErrConnection = errors.New("host connection error")
	// ErrConfiguration marks a missing or unusable external-tool setup,
	// typically an absent conf file pointing at the executable.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks malformed or missing stage parameters.
	ErrValidation = errors.New("validation error")
	// ErrExternalTool marks an external executable failure: nonzero exit or
	// no output artifact produced.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound marks a missing input file or directory.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should abort the entire run. Connection and
// configuration failures are fatal; a validation error aborts only the stage
// invocation that raised it, and an external tool failure only the file being
// processed.
func Fatal(err error) bool {
	return errors.Is(err, ErrConnection) || errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
