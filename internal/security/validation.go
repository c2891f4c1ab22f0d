package security

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidVersionRegex allows standard version formats
var ValidVersionRegex = regexp.MustCompile(`^[a-zA-Z0-9._+-]+$`)

// ValidateVersion validates a version string before it is embedded in
// directory names and download URLs
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("invalid version: version cannot be empty")
	}

	if len(version) >= 100 {
		return fmt.Errorf("version string too long (max 100 characters)")
	}

	if strings.Contains(version, "\x00") {
		return fmt.Errorf("invalid version: contains null byte")
	}

	dangerousPatterns := []string{
		"..", "/", "\\", ";", "&", "|", "`", "$", "\n", "\r",
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(version, pattern) {
			return fmt.Errorf("invalid version: contains dangerous pattern: %s", pattern)
		}
	}

	if !ValidVersionRegex.MatchString(version) {
		return fmt.Errorf("invalid version format: must be alphanumeric with dots, dashes, or plus signs")
	}

	return nil
}

// ValidateAlias validates a user-chosen installation alias
func ValidateAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("alias cannot be empty")
	}

	if len(alias) > 64 {
		return fmt.Errorf("alias too long (max 64 characters)")
	}

	if !regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`).MatchString(alias) {
		return fmt.Errorf("invalid alias: must start with a letter and contain only alphanumeric, dash, underscore, or dot characters")
	}

	return nil
}
