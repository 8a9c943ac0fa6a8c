package domain

import "strings"

// APIEnabledKey is the Config Store key acting as the kill switch.
const APIEnabledKey = "api_enabled"

const (
	FlagEnabled  = "1"
	FlagDisabled = "0"
)

// FlagDisablesAPI reports whether a stored api_enabled value explicitly
// turns the API off. Anything else, including garbage, leaves it on.
func FlagDisablesAPI(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false", "off", "no", "disabled":
		return true
	}
	return false
}
