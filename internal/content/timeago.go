package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeAgo renders the elapsed time between t and now. It is computed on
// every call so callers must not cache the result.
func TimeAgo(t, now time.Time) string {
	elapsed := now.Sub(t)
	switch {
	case elapsed < time.Minute:
		return "Just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed/(24*time.Hour)))
	}
}

var errBadTimestamp = errors.New("unsupported timestamp")

// ParseTimestamp accepts epoch milliseconds (number or numeric string) and
// ISO-8601 strings.
func ParseTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts, nil
	case int64:
		return time.UnixMilli(ts), nil
	case int:
		return time.UnixMilli(int64(ts)), nil
	case float64:
		return time.UnixMilli(int64(ts)), nil
	case json.Number:
		n, err := ts.Int64()
		if err != nil {
			f, ferr := ts.Float64()
			if ferr != nil {
				return time.Time{}, fmt.Errorf("%w: %s", errBadTimestamp, ts)
			}
			n = int64(f)
		}
		return time.UnixMilli(n), nil
	case string:
		s := strings.TrimSpace(ts)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(n), nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, ts)
	default:
		return time.Time{}, fmt.Errorf("%w: %T", errBadTimestamp, v)
	}
}
