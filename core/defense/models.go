package defense

import (
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
)

// Defense statuses
const (
	StatusWaiting = "waiting"
	StatusDone    = "done"
)

type (
	// GroupRef is the minimal group info nested into defense responses.
	GroupRef struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		GroupCode string `json:"group_code"`
	}

	// Lecturer is a directory entry for a user holding the lecturer role.
	Lecturer struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	// LecturerDefense is the per-lecturer scoring record for one Defense.
	// A lecturer is linked to a given defense at most once.
	LecturerDefense struct {
		ID           string       `json:"id"`
		LecturerID   string       `json:"lecturer_id"`
		LecturerName string       `json:"lecturer_name,omitempty"`
		DefenseID    string       `json:"defense_id"`
		GroupID      null.String  `json:"group_id"`
		Group        *GroupRef    `json:"group,omitempty"`
		Point        null.Float64 `json:"point"`
		Comment      null.String  `json:"comment"`
		CreatedAt    time.Time    `json:"created_at"` // UTC
		UpdatedAt    time.Time    `json:"updated_at"` // UTC
	}

	// Defense is a scheduled defense session occupying one time block on a date.
	Defense struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		DefenseCode string    `json:"defense_code"`
		Status      string    `json:"status"`
		Date        core.Date `json:"date"`
		core.TimeBlock
		LecturerDefenses []LecturerDefense `json:"lecturer_defenses"`
		Groups           []GroupRef        `json:"groups,omitempty"`
		CreatedAt        time.Time         `json:"created_at"` // UTC
		UpdatedAt        time.Time         `json:"updated_at"` // UTC
	}
)

// NewDefense contains information needed to schedule a new Defense.
type NewDefense struct {
	Name        string   `json:"name" validate:"required"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	LecturerIDs []string `json:"lecturer_ids" validate:"required,min=1,max=3,unique"`
	GroupIDs    []string `json:"group_ids" validate:"omitempty,unique"`
	Status      string   `json:"status" validate:"omitempty,oneof=waiting done"`

	// populated by Validate
	date  core.Date
	block core.TimeBlock
}

func (nd *NewDefense) Validate() error {
	nd.Name = core.CleanString(nd.Name)
	nd.Status = core.CleanString(nd.Status, true /* lower */)

	if err := core.Validate.Struct(nd); err != nil {
		return err
	}
	date, block, err := parseSlot(nd.Date, nd.StartTime, nd.EndTime, true /* required */)
	if err != nil {
		return err
	}
	nd.date = date
	nd.block = block
	return nil
}

// UpdateDefense defines what information may be provided to modify an existing Defense.
// Empty fields keep their current value.
type UpdateDefense struct {
	Name        string   `json:"name"`
	Date        string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	LecturerIDs []string `json:"lecturer_ids" validate:"omitempty,min=1,max=3,unique"`
	GroupIDs    []string `json:"group_ids" validate:"omitempty,unique"`
	Status      string   `json:"status" validate:"omitempty,oneof=waiting done"`

	// populated by Validate
	date  core.Date
	block core.TimeBlock
}

func (ud *UpdateDefense) Validate() error {
	ud.Name = core.CleanString(ud.Name)
	ud.Status = core.CleanString(ud.Status, true /* lower */)

	if err := core.Validate.Struct(ud); err != nil {
		return err
	}
	date, block, err := parseSlot(ud.Date, ud.StartTime, ud.EndTime, false /* required */)
	if err != nil {
		return err
	}
	ud.date = date
	ud.block = block
	return nil
}

// parseSlot parses and checks the date/time-block fields shared by NewDefense
// and UpdateDefense. Partial blocks (only one of start/end) are rejected; the
// block must be one of core.DailyBlocks.
func parseSlot(dateStr, startStr, endStr string, required bool) (core.Date, core.TimeBlock, error) {
	var date core.Date
	var block core.TimeBlock

	if !required && dateStr == "" && startStr == "" && endStr == "" {
		return date, block, nil
	}
	if (startStr == "") != (endStr == "") {
		fld := "start_time"
		if endStr == "" {
			fld = "end_time"
		}
		return date, block, core.NewValidationError(nil, core.FieldError{Field: fld, Error: "this field is required"})
	}

	if dateStr != "" {
		parsed, err := core.ParseDate(dateStr)
		if err != nil {
			return date, block, core.NewValidationError(err, core.FieldError{Field: "date", Error: "invalid date"})
		}
		date = parsed
	}
	if startStr != "" {
		start, err := core.ParseTimeOfDay(startStr)
		if err != nil {
			return date, block, core.NewValidationError(err, core.FieldError{Field: "start_time", Error: "invalid time"})
		}
		end, err := core.ParseTimeOfDay(endStr)
		if err != nil {
			return date, block, core.NewValidationError(err, core.FieldError{Field: "end_time", Error: "invalid time"})
		}
		block = core.TimeBlock{Start: start, End: end}
		if !block.IsValid() {
			return date, block, core.NewValidationError(nil, core.FieldError{Field: "start_time", Error: "start time must be before end time"})
		}
		if !core.IsCanonicalBlock(block) {
			return date, block, core.NewValidationError(nil, core.FieldError{Field: "start_time", Error: "time block must be one of the scheduled daily blocks"})
		}
	}
	return date, block, nil
}

// ScoreUpdate defines the score/comment patch on a LecturerDefense.
type ScoreUpdate struct {
	Point   *float64 `json:"point" validate:"omitempty,min=0,max=10"`
	Comment *string  `json:"comment"`
}

func (su *ScoreUpdate) Validate() error {
	if su.Comment != nil {
		c := core.CleanString(*su.Comment)
		su.Comment = &c
	}
	if err := core.Validate.Struct(su); err != nil {
		return err
	}
	// points carry at most 2 decimal places
	if su.Point != nil {
		if p := *su.Point; math.Round(p*100)/100 != p {
			return core.NewValidationError(nil, core.FieldError{Field: "point", Error: "point must have at most 2 decimal places"})
		}
	}
	return nil
}

type QueryFilter struct {
	Search     string `query:"search"`
	Status     string `query:"status"`
	Date       string `query:"date"`
	LecturerID string `query:"lecturer_id"`
	Limit      int    `query:"limit"`
	Offset     int    `query:"offset"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Date == "" && qf.LecturerID == "" && qf.Limit == 0 && qf.Offset == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	if qf.Limit < 0 {
		qf.Limit = 0
	}
	if qf.Offset < 0 {
		qf.Offset = 0
	}
}

// GetFilter selects a single defense by one of its unique fields.
type GetFilter struct {
	ID          string
	DefenseCode string
}
