package usecase

import "time"

// Clock returns the current time. Injected so state-machine rules that depend
// on "now" can be tested deterministically.
type Clock func() time.Time

const (
	dateLayout = "2006-01-02"
)

// dateTimeLayouts are tried in order when parsing booking times. Layouts
// without an offset are interpreted in the clinic location.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseDateTime(value string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
