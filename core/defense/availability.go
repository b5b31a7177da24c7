package defense

import "github.com/trezcool/utetezi/core"

type (
	// Commitment is a lecturer's existing booking on a given date.
	Commitment struct {
		LecturerID  string         `json:"lecturer_id"`
		DefenseID   string         `json:"defense_id"`
		DefenseCode string         `json:"defense_code"`
		Block       core.TimeBlock `json:"block"`
	}

	// Conflict reports a requested block clashing with an existing Commitment.
	Conflict struct {
		LecturerID  string         `json:"lecturer_id"`
		DefenseID   string         `json:"defense_id"`
		DefenseCode string         `json:"defense_code"`
		Block       core.TimeBlock `json:"block"`
	}
)

// FindConflicts returns every commitment of the given lecturers that overlaps
// the requested block. Commitments of lecturers not in lecturerIDs are ignored.
// The result is empty when all lecturers are free.
func FindConflicts(block core.TimeBlock, lecturerIDs []string, commitments []Commitment) []Conflict {
	wanted := make(map[string]bool, len(lecturerIDs))
	for _, id := range lecturerIDs {
		wanted[id] = true
	}

	var conflicts []Conflict
	for _, c := range commitments {
		if !wanted[c.LecturerID] {
			continue
		}
		if block.Overlaps(c.Block) {
			conflicts = append(conflicts, Conflict{
				LecturerID:  c.LecturerID,
				DefenseID:   c.DefenseID,
				DefenseCode: c.DefenseCode,
				Block:       c.Block,
			})
		}
	}
	return conflicts
}
