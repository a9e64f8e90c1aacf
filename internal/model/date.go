package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a day or instant read from a request body. Both YYYY-MM-DD and
// RFC 3339 are accepted; it is written back as RFC 3339.
type Date struct{ time.Time }

// ParseDate reads YYYY-MM-DD as midnight UTC, or a full RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// DateOf wraps t.
func DateOf(t time.Time) *Date { return &Date{Time: t} }
