package youtube

import (
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseDuration converts a contentDetails duration such as "PT1H2M3S" into
// whole seconds. It returns nil when the token is empty or does not match.
func ParseDuration(token string) *int {
	if token == "" {
		return nil
	}
	m := durationPattern.FindStringSubmatch(token)
	if m == nil {
		return nil
	}

	total := 0
	for i, mult := range []int{3600, 60, 1} {
		part := m[i+1]
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		total += n * mult
	}
	return &total
}
