package defense

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/utetezi/core"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	fields := make(map[string]string)
	switch verr := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range verr {
			fields[fe.Field()] = fe.Translate(core.Translator)
		}
	case *core.ValidationError:
		for _, fe := range verr.Fields {
			fields[fe.Field] = fe.Error
		}
	default:
		t.Fatalf("unexpected error type %T: %v", err, err)
	}
	return fields
}

func TestNewDefenseValidate(t *testing.T) {
	tests := []struct {
		name       string
		nd         NewDefense
		wantFields []string
	}{
		{
			name: "valid",
			nd: NewDefense{
				Name:        "Morning Session A",
				Date:        "2026-09-14",
				StartTime:   "07:00",
				EndTime:     "09:00",
				LecturerIDs: []string{"lect1", "lect2"},
			},
		},
		{
			name: "valid with seconds",
			nd: NewDefense{
				Name:        "Morning Session A",
				Date:        "2026-09-14",
				StartTime:   "09:30:00",
				EndTime:     "11:30:00",
				LecturerIDs: []string{"lect1"},
			},
		},
		{
			name:       "missing everything",
			nd:         NewDefense{},
			wantFields: []string{"name", "date", "start_time", "end_time", "lecturer_ids"},
		},
		{
			name: "bad date",
			nd: NewDefense{
				Name:        "Session",
				Date:        "14-09-2026",
				StartTime:   "07:00",
				EndTime:     "09:00",
				LecturerIDs: []string{"lect1"},
			},
			wantFields: []string{"date"},
		},
		{
			name: "no lecturers",
			nd: NewDefense{
				Name:        "Session",
				Date:        "2026-09-14",
				StartTime:   "07:00",
				EndTime:     "09:00",
				LecturerIDs: []string{},
			},
			wantFields: []string{"lecturer_ids"},
		},
		{
			name: "too many lecturers",
			nd: NewDefense{
				Name:        "Session",
				Date:        "2026-09-14",
				StartTime:   "07:00",
				EndTime:     "09:00",
				LecturerIDs: []string{"l1", "l2", "l3", "l4"},
			},
			wantFields: []string{"lecturer_ids"},
		},
		{
			name: "duplicate lecturers",
			nd: NewDefense{
				Name:        "Session",
				Date:        "2026-09-14",
				StartTime:   "07:00",
				EndTime:     "09:00",
				LecturerIDs: []string{"lect1", "lect1"},
			},
			wantFields: []string{"lecturer_ids"},
		},
		{
			name: "inverted block",
			nd: NewDefense{
				Name:        "Session",
				Date:        "2026-09-14",
				StartTime:   "09:00",
				EndTime:     "07:00",
				LecturerIDs: []string{"lect1"},
			},
			wantFields: []string{"start_time"},
		},
		{
			name: "off-schedule block",
			nd: NewDefense{
				Name:        "Session",
				Date:        "2026-09-14",
				StartTime:   "08:00",
				EndTime:     "10:00",
				LecturerIDs: []string{"lect1"},
			},
			wantFields: []string{"start_time"},
		},
		{
			name: "bad status",
			nd: NewDefense{
				Name:        "Session",
				Date:        "2026-09-14",
				StartTime:   "07:00",
				EndTime:     "09:00",
				LecturerIDs: []string{"lect1"},
				Status:      "cancelled",
			},
			wantFields: []string{"status"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nd.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				assert.False(t, tt.nd.date.IsZero())
				assert.True(t, core.IsCanonicalBlock(tt.nd.block))
				return
			}
			assert.Error(t, err)
			fields := fieldErrors(t, err)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestUpdateDefenseValidate(t *testing.T) {
	tests := []struct {
		name       string
		ud         UpdateDefense
		wantFields []string
	}{
		{name: "empty is valid", ud: UpdateDefense{}},
		{name: "name only", ud: UpdateDefense{Name: "Renamed"}},
		{
			name: "full slot",
			ud:   UpdateDefense{Date: "2026-09-15", StartTime: "13:00", EndTime: "15:00"},
		},
		{
			name:       "start without end",
			ud:         UpdateDefense{Date: "2026-09-15", StartTime: "13:00"},
			wantFields: []string{"end_time"},
		},
		{
			name:       "end without start",
			ud:         UpdateDefense{Date: "2026-09-15", EndTime: "15:00"},
			wantFields: []string{"start_time"},
		},
		{name: "status done", ud: UpdateDefense{Status: "done"}},
		{
			name:       "bad status",
			ud:         UpdateDefense{Status: "finished"},
			wantFields: []string{"status"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ud.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			fields := fieldErrors(t, err)
			for _, f := range tt.wantFields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestScoreUpdateValidate(t *testing.T) {
	fpt := func(v float64) *float64 { return &v }
	spt := func(v string) *string { return &v }

	tests := []struct {
		name      string
		su        ScoreUpdate
		wantField string
	}{
		{name: "empty is valid", su: ScoreUpdate{}},
		{name: "whole point", su: ScoreUpdate{Point: fpt(8)}},
		{name: "two decimals", su: ScoreUpdate{Point: fpt(7.25)}},
		{name: "zero", su: ScoreUpdate{Point: fpt(0)}},
		{name: "max", su: ScoreUpdate{Point: fpt(10)}},
		{name: "comment only", su: ScoreUpdate{Comment: spt("solid work")}},
		{name: "negative", su: ScoreUpdate{Point: fpt(-1)}, wantField: "point"},
		{name: "above max", su: ScoreUpdate{Point: fpt(10.5)}, wantField: "point"},
		{name: "three decimals", su: ScoreUpdate{Point: fpt(7.125)}, wantField: "point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.su.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, fieldErrors(t, err), tt.wantField)
		})
	}
}
