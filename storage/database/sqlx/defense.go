package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/defense"
)

type defenseRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	DefenseCode string         `db:"defense_code"`
	Status      string         `db:"status"`
	Date        core.Date      `db:"date"`
	Start       core.TimeOfDay `db:"start_time"`
	End         core.TimeOfDay `db:"end_time"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r defenseRow) unpack() defense.Defense {
	return defense.Defense{
		ID:          r.ID,
		Name:        r.Name,
		DefenseCode: r.DefenseCode,
		Status:      r.Status,
		Date:        r.Date,
		TimeBlock:   core.TimeBlock{Start: r.Start, End: r.End},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type lecturerDefenseRow struct {
	ID           string       `db:"id"`
	LecturerID   string       `db:"lecturer_id"`
	LecturerName null.String  `db:"lecturer_name"`
	DefenseID    string       `db:"defense_id"`
	GroupID      null.String  `db:"group_id"`
	Point        null.Float64 `db:"point"`
	Comment      null.String  `db:"comment"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (r lecturerDefenseRow) unpack() defense.LecturerDefense {
	return defense.LecturerDefense{
		ID:           r.ID,
		LecturerID:   r.LecturerID,
		LecturerName: r.LecturerName.String,
		DefenseID:    r.DefenseID,
		GroupID:      r.GroupID,
		Point:        r.Point,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type defenseRepository struct {
	exec core.DBExecutor
}

var _ defense.Repository = (*defenseRepository)(nil) // interface compliance check

func NewDefenseRepository(exec core.DBExecutor) *defenseRepository {
	return &defenseRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to defense.ErrNotFound
func (repo defenseRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return defense.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const defenseColumns = `id, name, defense_code, status, date, start_time, end_time, created_at, updated_at`

func (repo defenseRepository) CreateDefense(ctx context.Context, def defense.Defense, exec ...core.DBExecutor) (defense.Defense, error) {
	db := getExec(repo.exec, exec)

	def.ID = uuid.New().String()
	code, err := nextCode(ctx, db, "defense_code_seq", "DEF")
	if err != nil {
		return defense.Defense{}, err
	}
	def.DefenseCode = code

	query := db.Rebind(`
INSERT INTO defenses (` + defenseColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = db.ExecContext(ctx, query,
		def.ID, def.Name, def.DefenseCode, def.Status, def.Date, def.Start, def.End,
		def.CreatedAt.UTC(), def.UpdatedAt.UTC(),
	)
	if err != nil {
		return defense.Defense{}, errors.Wrap(err, "inserting defense")
	}
	return def, nil
}

func (repo defenseRepository) QueryDefenses(ctx context.Context, filter *defense.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]defense.Defense, error) {
	query := "SELECT " + defenseColumns + " FROM defenses"
	var clauses []string
	var args []interface{}
	limit, offset := 0, 0

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()
		if filter.Search != "" {
			clauses = append(clauses, "(name ILIKE ? OR defense_code ILIKE ?)")
			like := "%" + filter.Search + "%"
			args = append(args, like, like)
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.Date != "" {
			clauses = append(clauses, "date = ?")
			args = append(args, filter.Date)
		}
		if filter.LecturerID != "" {
			clauses = append(clauses, "id IN (SELECT defense_id FROM lecturer_defenses WHERE lecturer_id = ?)")
			args = append(args, filter.LecturerID)
		}
		limit, offset = filter.Limit, filter.Offset
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderingClause(ordering, "date DESC, start_time DESC")
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}

	db := getExec(repo.exec, exec)
	var rows []defenseRow
	if err := selectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying defenses")
	}

	defs := make([]defense.Defense, 0, len(rows))
	for _, r := range rows {
		defs = append(defs, r.unpack())
	}
	if err := repo.loadRelations(ctx, db, defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// loadRelations attaches the lecturer rows and group refs of each defense.
func (repo defenseRepository) loadRelations(ctx context.Context, db core.DBExecutor, defs []defense.Defense) error {
	if len(defs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(defs))
	idx := make(map[string]int, len(defs))
	for i, def := range defs {
		ids = append(ids, def.ID)
		idx[def.ID] = i
	}

	query, args, err := sqlxIn(`
SELECT ld.id, ld.lecturer_id, u.name AS lecturer_name, ld.defense_id, ld.group_id, ld.point, ld.comment, ld.created_at, ld.updated_at
FROM lecturer_defenses ld
JOIN users u ON u.id = ld.lecturer_id
WHERE ld.defense_id IN (?)
ORDER BY ld.created_at`, ids)
	if err != nil {
		return errors.Wrap(err, "querying lecturer defenses")
	}
	var ldRows []lecturerDefenseRow
	if err = selectContext(ctx, db, &ldRows, db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "querying lecturer defenses")
	}
	for _, r := range ldRows {
		i := idx[r.DefenseID]
		defs[i].LecturerDefenses = append(defs[i].LecturerDefenses, r.unpack())
	}

	query, args, err = sqlxIn(`
SELECT id, name, group_code, defense_id
FROM groups
WHERE defense_id IN (?)
ORDER BY group_code`, ids)
	if err != nil {
		return errors.Wrap(err, "querying defense groups")
	}
	var grpRows []struct {
		ID        string `db:"id"`
		Name      string `db:"name"`
		GroupCode string `db:"group_code"`
		DefenseID string `db:"defense_id"`
	}
	if err = selectContext(ctx, db, &grpRows, db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "querying defense groups")
	}
	for _, r := range grpRows {
		i := idx[r.DefenseID]
		defs[i].Groups = append(defs[i].Groups, defense.GroupRef{ID: r.ID, Name: r.Name, GroupCode: r.GroupCode})
	}
	return nil
}

func (repo defenseRepository) GetDefense(ctx context.Context, filter defense.GetFilter, exec ...core.DBExecutor) (defense.Defense, error) {
	query := "SELECT " + defenseColumns + " FROM defenses WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		query += "id = ?"
		arg = filter.ID
	case filter.DefenseCode != "":
		query += "defense_code = ?"
		arg = filter.DefenseCode
	default:
		return defense.Defense{}, defense.ErrNotFound
	}

	db := getExec(repo.exec, exec)
	var r defenseRow
	if err := getContext(ctx, db, &r, db.Rebind(query), arg); err != nil {
		return defense.Defense{}, repo.trapNoRowsErr(err, "getting defense")
	}
	defs := []defense.Defense{r.unpack()}
	if err := repo.loadRelations(ctx, db, defs); err != nil {
		return defense.Defense{}, err
	}
	return defs[0], nil
}

func (repo defenseRepository) UpdateDefense(ctx context.Context, def defense.Defense, exec ...core.DBExecutor) (defense.Defense, error) {
	db := getExec(repo.exec, exec)
	query := db.Rebind(`
UPDATE defenses
SET name = ?, status = ?, date = ?, start_time = ?, end_time = ?, updated_at = ?
WHERE id = ?`)
	res, err := db.ExecContext(ctx, query,
		def.Name, def.Status, def.Date, def.Start, def.End, def.UpdatedAt.UTC(), def.ID,
	)
	if err != nil {
		return defense.Defense{}, errors.Wrap(err, "updating defense")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return defense.Defense{}, defense.ErrNotFound
	}
	return def, nil
}

func (repo defenseRepository) DeleteDefensesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn("DELETE FROM defenses WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting defenses")
	}

	db := getExec(repo.exec, exec)
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting defenses")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo defenseRepository) CreateLecturerDefense(ctx context.Context, ld defense.LecturerDefense, exec ...core.DBExecutor) (defense.LecturerDefense, error) {
	ld.ID = uuid.New().String()

	db := getExec(repo.exec, exec)
	query := db.Rebind(`
INSERT INTO lecturer_defenses (id, lecturer_id, defense_id, group_id, point, comment, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := db.ExecContext(ctx, query,
		ld.ID, ld.LecturerID, ld.DefenseID, ld.GroupID, ld.Point, ld.Comment,
		ld.CreatedAt.UTC(), ld.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "lecturer_defenses_lecturer_id_defense_id_key") {
			return defense.LecturerDefense{}, defense.ErrDuplicateLecturer
		}
		return defense.LecturerDefense{}, errors.Wrap(err, "inserting lecturer defense")
	}
	return ld, nil
}

func (repo defenseRepository) DeleteLecturerDefenses(ctx context.Context, defenseID string, lecturerIDs []string, exec ...core.DBExecutor) error {
	if len(lecturerIDs) == 0 {
		return nil
	}
	query, args, err := sqlxIn("DELETE FROM lecturer_defenses WHERE defense_id = ? AND lecturer_id IN (?)", defenseID, lecturerIDs)
	if err != nil {
		return errors.Wrap(err, "deleting lecturer defenses")
	}

	db := getExec(repo.exec, exec)
	if _, err = db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting lecturer defenses")
	}
	return nil
}

func (repo defenseRepository) GetLecturerDefense(ctx context.Context, id string, exec ...core.DBExecutor) (defense.LecturerDefense, error) {
	db := getExec(repo.exec, exec)
	query := db.Rebind(`
SELECT ld.id, ld.lecturer_id, u.name AS lecturer_name, ld.defense_id, ld.group_id, ld.point, ld.comment, ld.created_at, ld.updated_at
FROM lecturer_defenses ld
JOIN users u ON u.id = ld.lecturer_id
WHERE ld.id = ?`)
	var r lecturerDefenseRow
	if err := getContext(ctx, db, &r, query, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return defense.LecturerDefense{}, defense.ErrScoreNotFound
		}
		return defense.LecturerDefense{}, errors.Wrap(err, "getting lecturer defense")
	}
	return r.unpack(), nil
}

func (repo defenseRepository) UpdateLecturerDefense(ctx context.Context, ld defense.LecturerDefense, exec ...core.DBExecutor) (defense.LecturerDefense, error) {
	db := getExec(repo.exec, exec)
	query := db.Rebind(`
UPDATE lecturer_defenses
SET group_id = ?, point = ?, comment = ?, updated_at = ?
WHERE id = ?`)
	res, err := db.ExecContext(ctx, query, ld.GroupID, ld.Point, ld.Comment, ld.UpdatedAt.UTC(), ld.ID)
	if err != nil {
		return defense.LecturerDefense{}, errors.Wrap(err, "updating lecturer defense")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return defense.LecturerDefense{}, defense.ErrScoreNotFound
	}
	return ld, nil
}

func (repo defenseRepository) QueryLecturerDefenses(ctx context.Context, lecturerID string, exec ...core.DBExecutor) ([]defense.Defense, error) {
	return repo.QueryDefenses(ctx, &defense.QueryFilter{LecturerID: lecturerID}, nil, exec...)
}

func (repo defenseRepository) LecturerCommitments(ctx context.Context, lecturerIDs []string, date core.Date, excludeDefenseID string, exec ...core.DBExecutor) ([]defense.Commitment, error) {
	if len(lecturerIDs) == 0 {
		return nil, nil
	}

	query := `
SELECT ld.lecturer_id, d.id AS defense_id, d.defense_code, d.start_time, d.end_time
FROM lecturer_defenses ld
JOIN defenses d ON d.id = ld.defense_id
WHERE d.date = ? AND ld.lecturer_id IN (?)`
	args := []interface{}{date, lecturerIDs}
	if excludeDefenseID != "" {
		query += " AND d.id <> ?"
		args = append(args, excludeDefenseID)
	}
	query, inArgs, err := sqlxIn(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying lecturer commitments")
	}

	db := getExec(repo.exec, exec)
	var rows []struct {
		LecturerID  string         `db:"lecturer_id"`
		DefenseID   string         `db:"defense_id"`
		DefenseCode string         `db:"defense_code"`
		Start       core.TimeOfDay `db:"start_time"`
		End         core.TimeOfDay `db:"end_time"`
	}
	if err = selectContext(ctx, db, &rows, db.Rebind(query), inArgs...); err != nil {
		return nil, errors.Wrap(err, "querying lecturer commitments")
	}

	commitments := make([]defense.Commitment, 0, len(rows))
	for _, r := range rows {
		commitments = append(commitments, defense.Commitment{
			LecturerID:  r.LecturerID,
			DefenseID:   r.DefenseID,
			DefenseCode: r.DefenseCode,
			Block:       core.TimeBlock{Start: r.Start, End: r.End},
		})
	}
	return commitments, nil
}

func (repo defenseRepository) GetLecturers(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]defense.Lecturer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlxIn(`
SELECT id, name, email
FROM users
WHERE role = ? AND is_active AND id IN (?)`, core.RoleLecturer, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying lecturers")
	}

	db := getExec(repo.exec, exec)
	var lecturers []defense.Lecturer
	if err = selectContext(ctx, db, &lecturers, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying lecturers")
	}
	return lecturers, nil
}
