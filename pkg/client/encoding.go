package client

import (
	"time"

	// embedded zone database so the default location resolves on minimal images
	_ "time/tzdata"
)

const (
	// DefaultLocationName is the zone the API interprets date parameters in.
	DefaultLocationName = "America/Los_Angeles"

	// DefaultDateLayout is the wire format for date parameters.
	DefaultDateLayout = "2006-01-02 15:04:05"
)

// Encoding controls how values are rendered into query parameters.
type Encoding struct {
	Location   *time.Location
	DateLayout string
}

// DefaultEncoding returns the API's native date encoding.
func DefaultEncoding() Encoding {
	loc, err := time.LoadLocation(DefaultLocationName)
	if err != nil {
		loc = time.FixedZone("PST", -8*60*60)
	}
	return Encoding{
		Location:   loc,
		DateLayout: DefaultDateLayout,
	}
}

// FormatTime renders t in the encoding's zone and layout.
func (e Encoding) FormatTime(t time.Time) string {
	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}
	layout := e.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.In(loc).Format(layout)
}
