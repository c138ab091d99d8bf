package feeds

import (
	"context"
	"labcomm/config"
)

// StaticPage renders values known at start-up, such as the public calendar id.
type StaticPage struct {
	values Context
}

func (s *StaticPage) Context(context.Context) Context {
	return Context{}.Merge(s.values)
}

// NewCalendar renders the Google Calendar page. The calendar itself is an
// embedded widget; nothing is fetched.
func NewCalendar(cfg config.CalendarConfig) *StaticPage {
	return &StaticPage{values: Context{
		"google_calendar_id": cfg.GoogleCalendarID,
	}}
}

// NewFeedDetails renders the page describing the lab's subscribable feeds.
func NewFeedDetails(calendar config.CalendarConfig, wikipedia config.WikipediaConfig) *StaticPage {
	return &StaticPage{values: Context{
		"google_calendar_id": calendar.GoogleCalendarID,
		"wikipedia_username": wikipedia.Username,
	}}
}
