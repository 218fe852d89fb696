package types

import "time"

// CivilDateLayout is the calendar-date form used on the wire and in
// storage: no time of day, no timezone.
const CivilDateLayout = "2006-01-02"

// displayLayout is the locale-rendered short form, e.g. "Oct 26, 2023".
const displayLayout = "Jan 2, 2006"

// acceptedDateLayouts are the inputs NormalizeDate understands beyond the
// civil form itself. Parsing is tried in order.
var acceptedDateLayouts = []string{
	CivilDateLayout,
	time.RFC3339,
	displayLayout,
	"January 2, 2006",
	"01/02/2006",
}

// CivilDate truncates a time to its calendar date string.
func CivilDate(t time.Time) string {
	return t.Format(CivilDateLayout)
}

// NormalizeDate converts a date-like string to YYYY-MM-DD. The result is
// timezone-free: parsing and re-rendering never shift the calendar day.
// Unparsable or empty input yields "" so callers can apply their default.
func NormalizeDate(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(CivilDateLayout)
		}
	}
	return ""
}

// FormatDate renders a stored civil date for display, e.g. "2025-05-11"
// becomes "May 11, 2025". Input that does not parse is returned unchanged.
func FormatDate(value string) string {
	normalized := NormalizeDate(value)
	if normalized == "" {
		return value
	}
	t, err := time.Parse(CivilDateLayout, normalized)
	if err != nil {
		return value
	}
	return t.Format(displayLayout)
}
