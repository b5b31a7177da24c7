package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
)

type defenseRepository struct {
	db *DB
}

var _ defense.Repository = (*defenseRepository)(nil)

func NewDefenseRepository(db *DB) *defenseRepository {
	return &defenseRepository{db: db}
}

func (repo *defenseRepository) CreateDefense(ctx context.Context, def defense.Defense, exec ...core.DBExecutor) (defense.Defense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	def.ID = uuid.New().String()
	def.DefenseCode = repo.db.nextDefenseCode()
	def.LecturerDefenses = nil
	def.Groups = nil
	repo.db.defenses[def.ID] = &def
	return def, nil
}

// relations rebuilds the nested lecturer rows and group refs of def.
func (repo *defenseRepository) relations(def defense.Defense) defense.Defense {
	def.LecturerDefenses = nil
	def.Groups = nil
	for _, ld := range repo.db.lecturerDefenses {
		if ld.DefenseID != def.ID {
			continue
		}
		row := *ld
		if usr, ok := repo.db.users[ld.LecturerID]; ok {
			row.LecturerName = usr.Name
		}
		def.LecturerDefenses = append(def.LecturerDefenses, row)
	}
	for _, g := range repo.db.groups {
		if g.DefenseID.String == def.ID {
			def.Groups = append(def.Groups, defense.GroupRef{ID: g.ID, Name: g.Name, GroupCode: g.GroupCode})
		}
	}
	// match the sqlx repo's ORDER BY ld.created_at / ORDER BY group_code
	sort.Slice(def.LecturerDefenses, func(i, j int) bool {
		a, b := def.LecturerDefenses[i], def.LecturerDefenses[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	sort.Slice(def.Groups, func(i, j int) bool {
		return def.Groups[i].GroupCode < def.Groups[j].GroupCode
	})
	return def
}

func (repo *defenseRepository) QueryDefenses(ctx context.Context, filter *defense.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]defense.Defense, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var defs []defense.Defense
	for _, def := range repo.db.defenses {
		d := repo.relations(*def)
		if filter != nil && !matchDefense(d, filter) {
			continue
		}
		defs = append(defs, d)
	}
	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(defs) {
				return nil, nil
			}
			defs = defs[filter.Offset:]
		}
		if filter.Limit > 0 && filter.Limit < len(defs) {
			defs = defs[:filter.Limit]
		}
	}
	return defs, nil
}

func matchDefense(def defense.Defense, filter *defense.QueryFilter) bool {
	if filter.Status != "" && def.Status != filter.Status {
		return false
	}
	if filter.Date != "" && def.Date.String() != filter.Date {
		return false
	}
	if filter.LecturerID != "" {
		var found bool
		for _, ld := range def.LecturerDefenses {
			if ld.LecturerID == filter.LecturerID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(def.Name+" "+def.DefenseCode), s) {
			return false
		}
	}
	return true
}

func (repo *defenseRepository) GetDefense(ctx context.Context, filter defense.GetFilter, exec ...core.DBExecutor) (defense.Defense, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if def, ok := repo.db.defenses[filter.ID]; ok {
			return repo.relations(*def), nil
		}
		return defense.Defense{}, defense.ErrNotFound
	}
	if filter.DefenseCode != "" {
		for _, def := range repo.db.defenses {
			if def.DefenseCode == filter.DefenseCode {
				return repo.relations(*def), nil
			}
		}
	}
	return defense.Defense{}, defense.ErrNotFound
}

func (repo *defenseRepository) UpdateDefense(ctx context.Context, def defense.Defense, exec ...core.DBExecutor) (defense.Defense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.defenses[def.ID]; !ok {
		return defense.Defense{}, defense.ErrNotFound
	}
	stored := def
	stored.LecturerDefenses = nil
	stored.Groups = nil
	repo.db.defenses[def.ID] = &stored
	return def, nil
}

func (repo *defenseRepository) DeleteDefensesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.defenses[id]; !ok {
			continue
		}
		delete(repo.db.defenses, id)
		n++

		// cascade / clear references
		for ldID, ld := range repo.db.lecturerDefenses {
			if ld.DefenseID == id {
				delete(repo.db.lecturerDefenses, ldID)
			}
		}
		for _, g := range repo.db.groups {
			if g.DefenseID.String == id {
				g.DefenseID.Valid = false
				g.DefenseID.String = ""
			}
		}
	}
	return n, nil
}

func (repo *defenseRepository) CreateLecturerDefense(ctx context.Context, ld defense.LecturerDefense, exec ...core.DBExecutor) (defense.LecturerDefense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.lecturerDefenses {
		if existing.LecturerID == ld.LecturerID && existing.DefenseID == ld.DefenseID {
			return defense.LecturerDefense{}, defense.ErrDuplicateLecturer
		}
	}
	ld.ID = uuid.New().String()
	if usr, ok := repo.db.users[ld.LecturerID]; ok {
		ld.LecturerName = usr.Name
	}
	repo.db.lecturerDefenses[ld.ID] = &ld
	return ld, nil
}

func (repo *defenseRepository) DeleteLecturerDefenses(ctx context.Context, defenseID string, lecturerIDs []string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, ld := range repo.db.lecturerDefenses {
		if ld.DefenseID != defenseID {
			continue
		}
		for _, lectID := range lecturerIDs {
			if ld.LecturerID == lectID {
				delete(repo.db.lecturerDefenses, id)
				break
			}
		}
	}
	return nil
}

func (repo *defenseRepository) GetLecturerDefense(ctx context.Context, id string, exec ...core.DBExecutor) (defense.LecturerDefense, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ld, ok := repo.db.lecturerDefenses[id]; ok {
		return *ld, nil
	}
	return defense.LecturerDefense{}, defense.ErrScoreNotFound
}

func (repo *defenseRepository) UpdateLecturerDefense(ctx context.Context, ld defense.LecturerDefense, exec ...core.DBExecutor) (defense.LecturerDefense, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lecturerDefenses[ld.ID]; !ok {
		return defense.LecturerDefense{}, defense.ErrScoreNotFound
	}
	repo.db.lecturerDefenses[ld.ID] = &ld
	return ld, nil
}

func (repo *defenseRepository) QueryLecturerDefenses(ctx context.Context, lecturerID string, exec ...core.DBExecutor) ([]defense.Defense, error) {
	return repo.QueryDefenses(ctx, &defense.QueryFilter{LecturerID: lecturerID}, nil)
}

func (repo *defenseRepository) LecturerCommitments(ctx context.Context, lecturerIDs []string, date core.Date, excludeDefenseID string, exec ...core.DBExecutor) ([]defense.Commitment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(lecturerIDs))
	for _, id := range lecturerIDs {
		wanted[id] = true
	}

	var commitments []defense.Commitment
	for _, ld := range repo.db.lecturerDefenses {
		if !wanted[ld.LecturerID] {
			continue
		}
		def, ok := repo.db.defenses[ld.DefenseID]
		if !ok || def.ID == excludeDefenseID || def.Date.String() != date.String() {
			continue
		}
		commitments = append(commitments, defense.Commitment{
			LecturerID:  ld.LecturerID,
			DefenseID:   def.ID,
			DefenseCode: def.DefenseCode,
			Block:       def.TimeBlock,
		})
	}
	return commitments, nil
}

func (repo *defenseRepository) GetLecturers(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]defense.Lecturer, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var lecturers []defense.Lecturer
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok && usr.IsLecturer() && usr.IsActive {
			lecturers = append(lecturers, defense.Lecturer{ID: usr.ID, Name: usr.Name, Email: usr.Email})
		}
	}
	return lecturers, nil
}
