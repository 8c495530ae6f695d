package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks network and availability failures that resolve on a
	// later cycle without operator intervention.
	ErrTransient = errors.New("transient failure")
	// ErrParse marks malformed upstream data (index JSON, article HTML).
	ErrParse = errors.New("parse error")
	// ErrGeneration marks LLM failures: abnormal finish reasons and responses
	// that never matched the declared schema.
	ErrGeneration = errors.New("generation error")
	// ErrStorage marks database and filesystem failures.
	ErrStorage = errors.New("storage error")
	// ErrConfiguration marks invalid settings; fatal before the main loop only.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
