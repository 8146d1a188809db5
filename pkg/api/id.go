package api

import "regexp"

// Identifiers are "{category}_" followed by 32 characters of entropy and a
// 16 character partition key.
var (
	responseIDPattern = regexp.MustCompile(`^resp_[a-zA-Z0-9]{48}$`)
	itemIDPattern     = regexp.MustCompile(`^(msg|func|funcout|rs)_[a-zA-Z0-9]{48}$`)
)

// ValidateResponseID checks whether the given string is a valid response ID.
func ValidateResponseID(id string) bool {
	return responseIDPattern.MatchString(id)
}

// ValidateItemID checks whether the given string is a valid output item ID.
func ValidateItemID(id string) bool {
	return itemIDPattern.MatchString(id)
}
