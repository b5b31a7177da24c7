package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// TimeOfDay is a clock time without a date, stored as minutes since midnight.
// It maps to a postgres TIME column and renders as "15:04" in JSON.
type TimeOfDay int

const timeOfDayLayout = "15:04"

func NewTimeOfDay(hour, min int) TimeOfDay {
	return TimeOfDay(hour*60 + min)
}

// ParseTimeOfDay parses "15:04" (and "15:04:05", seconds dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		var err2 error
		if t, err2 = time.Parse("15:04:05", s); err2 != nil {
			return 0, errors.Wrapf(err, "parsing time of day %q", s)
		}
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = tod
	return nil
}

// Scan implements sql.Scanner; lib/pq returns TIME columns as time.Time or raw bytes.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*t = NewTimeOfDay(v.Hour(), v.Minute())
		return nil
	case []byte:
		tod, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = tod
		return nil
	case string:
		tod, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = tod
		return nil
	}
	return errors.Errorf("cannot scan %T into TimeOfDay", src)
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute()), nil
}

// TimeBlock is a contiguous [Start, End) interval within a day.
type TimeBlock struct {
	Start TimeOfDay `json:"start_time" db:"start_time"`
	End   TimeOfDay `json:"end_time" db:"end_time"`
}

func (b TimeBlock) IsZero() bool { return b.Start == 0 && b.End == 0 }

// IsValid reports whether the block is a well-formed non-empty interval.
func (b TimeBlock) IsValid() bool { return b.Start < b.End }

// Overlaps applies the half-open interval overlap test: two blocks conflict
// when each one starts before the other ends. Blocks that merely touch
// (b.End == other.Start) do not overlap.
func (b TimeBlock) Overlaps(other TimeBlock) bool {
	return b.Start < other.End && other.Start < b.End
}

func (b TimeBlock) String() string {
	return b.Start.String() + "-" + b.End.String()
}

// DailyBlocks is the canonical set of defense time blocks in a day.
var DailyBlocks = []TimeBlock{
	{Start: NewTimeOfDay(7, 0), End: NewTimeOfDay(9, 0)},
	{Start: NewTimeOfDay(9, 30), End: NewTimeOfDay(11, 30)},
	{Start: NewTimeOfDay(13, 0), End: NewTimeOfDay(15, 0)},
	{Start: NewTimeOfDay(15, 30), End: NewTimeOfDay(17, 30)},
}

// IsCanonicalBlock reports whether b is one of the four DailyBlocks.
func IsCanonicalBlock(b TimeBlock) bool {
	for _, blk := range DailyBlocks {
		if b == blk {
			return true
		}
	}
	return false
}
