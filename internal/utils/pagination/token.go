package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const dateFormat = time.DateOnly

// tokenPrefix versions the token layout so old tokens fail loudly after a change.
const tokenPrefix = "occ"

// EncodeToken creates a base64 encoded token pointing just past the given occurrence date.
// Occurrence dates are unique per rule, so the date alone is a stable cursor.
func EncodeToken(occurrenceDate time.Time) string {
	tokenStr := fmt.Sprintf("%s|%s", tokenPrefix, occurrenceDate.Format(dateFormat))
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken back into the occurrence date.
func DecodeToken(token string) (time.Time, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[0] != tokenPrefix {
		return time.Time{}, fmt.Errorf("invalid pagination token format (split)")
	}

	date, err := time.Parse(dateFormat, parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pagination token format (date parse): %w", err)
	}
	return date, nil
}
