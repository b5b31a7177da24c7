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
	"github.com/trezcool/utetezi/core/group"
)

type groupRow struct {
	ID            string      `db:"id"`
	Name          string      `db:"name"`
	GroupCode     string      `db:"group_code"`
	Status        string      `db:"status"`
	DefStatus     int         `db:"def_status"`
	LecturerID    null.String `db:"lecturer_id"`
	StudentLeadID null.String `db:"student_lead_id"`
	TopicID       null.String `db:"topic_id"`
	DefenseID     null.String `db:"defense_id"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r groupRow) unpack() group.Group {
	return group.Group{
		ID:            r.ID,
		Name:          r.Name,
		GroupCode:     r.GroupCode,
		Status:        r.Status,
		DefStatus:     r.DefStatus,
		LecturerID:    r.LecturerID,
		StudentLeadID: r.StudentLeadID,
		TopicID:       r.TopicID,
		DefenseID:     r.DefenseID,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type memberRow struct {
	GroupID  string    `db:"group_id"`
	UserID   string    `db:"user_id"`
	Name     string    `db:"name"`
	JoinedAt time.Time `db:"joined_at"`
}

type groupRepository struct {
	exec core.DBExecutor
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(exec core.DBExecutor) *groupRepository {
	return &groupRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to group.ErrNotFound
func (repo groupRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return group.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const groupColumns = `id, name, group_code, status, def_status, lecturer_id, student_lead_id, topic_id, defense_id, created_at, updated_at`

func (repo groupRepository) CreateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	db := getExec(repo.exec, exec)

	g.ID = uuid.New().String()
	code, err := nextCode(ctx, db, "group_code_seq", "GRP")
	if err != nil {
		return group.Group{}, err
	}
	g.GroupCode = code

	query := db.Rebind(`
INSERT INTO groups (` + groupColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = db.ExecContext(ctx, query,
		g.ID, g.Name, g.GroupCode, g.Status, g.DefStatus,
		g.LecturerID, g.StudentLeadID, g.TopicID, g.DefenseID,
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return g, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]group.Group, error) {
	query := "SELECT " + groupColumns + " FROM groups"
	var clauses []string
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()
		if filter.Search != "" {
			clauses = append(clauses, "(name ILIKE ? OR group_code ILIKE ?)")
			like := "%" + filter.Search + "%"
			args = append(args, like, like)
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.LecturerID != "" {
			clauses = append(clauses, "lecturer_id = ?")
			args = append(args, filter.LecturerID)
		}
		if filter.DefenseID != "" {
			clauses = append(clauses, "defense_id = ?")
			args = append(args, filter.DefenseID)
		}
		if filter.MemberID != "" {
			clauses = append(clauses, "id IN (SELECT group_id FROM group_members WHERE user_id = ?)")
			args = append(args, filter.MemberID)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderingClause(ordering, "created_at DESC")

	db := getExec(repo.exec, exec)
	var rows []groupRow
	if err := selectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}

	groups := make([]group.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.unpack())
	}
	if err := repo.loadMembers(ctx, db, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (repo groupRepository) loadMembers(ctx context.Context, db core.DBExecutor, groups []group.Group) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]string, 0, len(groups))
	idx := make(map[string]int, len(groups))
	for i, g := range groups {
		ids = append(ids, g.ID)
		idx[g.ID] = i
	}

	query, args, err := sqlxIn(`
SELECT gm.group_id, gm.user_id, u.name, gm.joined_at
FROM group_members gm
JOIN users u ON u.id = gm.user_id
WHERE gm.group_id IN (?)
ORDER BY gm.joined_at`, ids)
	if err != nil {
		return errors.Wrap(err, "querying group members")
	}
	var rows []memberRow
	if err = selectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "querying group members")
	}
	for _, r := range rows {
		i := idx[r.GroupID]
		groups[i].Members = append(groups[i].Members, group.Member{
			UserID:   r.UserID,
			Name:     r.Name,
			JoinedAt: r.JoinedAt.UTC(),
		})
	}
	return nil
}

func (repo groupRepository) GetGroup(ctx context.Context, filter group.GetFilter, exec ...core.DBExecutor) (group.Group, error) {
	query := "SELECT " + groupColumns + " FROM groups WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		query += "id = ?"
		arg = filter.ID
	case filter.GroupCode != "":
		query += "group_code = ?"
		arg = filter.GroupCode
	default:
		return group.Group{}, group.ErrNotFound
	}

	db := getExec(repo.exec, exec)
	var r groupRow
	if err := getContext(ctx, db, &r, db.Rebind(query), arg); err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "getting group")
	}
	groups := []group.Group{r.unpack()}
	if err := repo.loadMembers(ctx, db, groups); err != nil {
		return group.Group{}, err
	}
	return groups[0], nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	db := getExec(repo.exec, exec)
	query := db.Rebind(`
UPDATE groups
SET name = ?, status = ?, def_status = ?, lecturer_id = ?, student_lead_id = ?, topic_id = ?, defense_id = ?, updated_at = ?
WHERE id = ?`)
	res, err := db.ExecContext(ctx, query,
		g.Name, g.Status, g.DefStatus, g.LecturerID, g.StudentLeadID, g.TopicID, g.DefenseID,
		g.UpdatedAt.UTC(), g.ID,
	)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return g, nil
}

func (repo groupRepository) DeleteGroupsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn("DELETE FROM groups WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting groups")
	}

	db := getExec(repo.exec, exec)
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting groups")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo groupRepository) AssignDefense(ctx context.Context, groupIDs []string, defenseID null.String, exec ...core.DBExecutor) error {
	if len(groupIDs) == 0 {
		return nil
	}
	query, args, err := sqlxIn("UPDATE groups SET defense_id = ?, updated_at = ? WHERE id IN (?)", defenseID, time.Now().UTC(), groupIDs)
	if err != nil {
		return errors.Wrap(err, "assigning defense to groups")
	}

	db := getExec(repo.exec, exec)
	if _, err = db.ExecContext(ctx, db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "assigning defense to groups")
	}
	return nil
}

func (repo groupRepository) AddMember(ctx context.Context, groupID, userID string, exec ...core.DBExecutor) error {
	db := getExec(repo.exec, exec)
	query := db.Rebind("INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)")
	if _, err := db.ExecContext(ctx, query, groupID, userID, time.Now().UTC()); err != nil {
		if isUniqueViolation(err, "") {
			return group.ErrAlreadyMember
		}
		return errors.Wrap(err, "adding group member")
	}
	return nil
}

func (repo groupRepository) RemoveMember(ctx context.Context, groupID, userID string, exec ...core.DBExecutor) error {
	db := getExec(repo.exec, exec)
	query := db.Rebind("DELETE FROM group_members WHERE group_id = ? AND user_id = ?")
	res, err := db.ExecContext(ctx, query, groupID, userID)
	if err != nil {
		return errors.Wrap(err, "removing group member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.ErrNotMember
	}
	return nil
}
