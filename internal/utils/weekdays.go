package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var dayMap = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// ParseWeekdays parses a comma-separated list of weekdays into a sorted,
// de-duplicated set of 0..6 (0=Sunday). Names and numbers are both accepted,
// as are the shorthands "weekdays" and "weekends".
func ParseWeekdays(s string) ([]int, error) {
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		switch part {
		case "weekdays":
			for d := 1; d <= 5; d++ {
				seen[d] = true
			}
			continue
		case "weekends":
			seen[0], seen[6] = true, true
			continue
		}
		if d, ok := dayMap[part]; ok {
			seen[d] = true
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		seen[num] = true
	}

	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}
