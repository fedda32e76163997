package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrLinkCreation  = errors.New("link creation error")
	ErrIndexBuild    = errors.New("index build error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// kinds lists the stable classification strings persisted in the run
// ledger, most specific first.
var kinds = []struct {
	marker error
	name   string
}{
	{ErrExternalTool, "external_tool"},
	{ErrLinkCreation, "link_creation"},
	{ErrIndexBuild, "index_build"},
	{ErrConfiguration, "configuration"},
	{ErrNotFound, "not_found"},
}

// Kind maps an error to its ledger classification. Nil errors map to the
// empty string and unmarked errors to "transient".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "transient"
}

// IsFatal reports whether err must stop a batch before dispatch begins.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	var parts []string
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "batch failure"
	}
	return strings.Join(parts, ": ")
}
