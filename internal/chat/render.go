package chat

import "time"

// Row is one line of a rendered transcript: either a date divider or a message.
type Row struct {
	Divider string
	Message *Message
}

// IsDivider reports whether the row is a date divider.
func (r Row) IsDivider() bool { return r.Message == nil }

// Group lays out msgs with a divider between adjacent messages whose calendar
// day (in loc) differs. There is never a divider before the first message.
func Group(msgs []Message, loc *time.Location, now time.Time) []Row {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]Row, 0, len(msgs))
	for i := range msgs {
		if i > 0 && !sameDay(msgs[i-1].SentAt, msgs[i].SentAt, loc) {
			rows = append(rows, Row{Divider: DayLabel(msgs[i].SentAt, now, loc)})
		}
		rows = append(rows, Row{Message: &msgs[i]})
	}
	return rows
}

// DayLabel returns "Today", "Yesterday" or a short date such as "Jan 2".
func DayLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	switch {
	case sameDay(t, now, loc):
		return "Today"
	case sameDay(t, now.In(loc).AddDate(0, 0, -1), loc):
		return "Yesterday"
	default:
		return t.In(loc).Format("Jan 2")
	}
}

// ClockLabel formats the time of day, e.g. "03:04 PM".
func ClockLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("03:04 PM")
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
