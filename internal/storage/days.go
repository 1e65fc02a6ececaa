package storage

import (
	"encoding/json"

	"github.com/julianstephens/routinely/internal/logger"
)

// UnreadableDay replaces a day_of_week column that does not decode. It is
// outside 0..6, so the evaluator fails the day clause with a configuration
// diagnostic instead of the whole condition list failing to load.
const UnreadableDay = -1

// DecodeDayOfWeek decodes a stored day_of_week JSON array. Empty input and
// empty arrays mean no day clause.
func DecodeDayOfWeek(checkID string, raw []byte) []int {
	if len(raw) == 0 {
		return nil
	}
	var days []int
	if err := json.Unmarshal(raw, &days); err != nil {
		logger.Warn("Unreadable day_of_week, check will fail closed", "check", checkID, "error", err)
		return []int{UnreadableDay}
	}
	if len(days) == 0 {
		return nil
	}
	return days
}
