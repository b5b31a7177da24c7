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
	"github.com/trezcool/utetezi/core/topic"
)

type topicRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	TopicCode   string      `db:"topic_code"`
	Description string      `db:"description"`
	Status      string      `db:"status"`
	LecturerID  null.String `db:"lecturer_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r topicRow) unpack() topic.Topic {
	return topic.Topic{
		ID:          r.ID,
		Name:        r.Name,
		TopicCode:   r.TopicCode,
		Description: r.Description,
		Status:      r.Status,
		LecturerID:  r.LecturerID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type topicRepository struct {
	exec core.DBExecutor
}

var _ topic.Repository = (*topicRepository)(nil) // interface compliance check

func NewTopicRepository(exec core.DBExecutor) *topicRepository {
	return &topicRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to topic.ErrNotFound
func (repo topicRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return topic.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

const topicColumns = `id, name, topic_code, description, status, lecturer_id, created_at, updated_at`

func (repo topicRepository) CreateTopic(ctx context.Context, t topic.Topic, exec ...core.DBExecutor) (topic.Topic, error) {
	db := getExec(repo.exec, exec)

	t.ID = uuid.New().String()
	code, err := nextCode(ctx, db, "topic_code_seq", "TOP")
	if err != nil {
		return topic.Topic{}, err
	}
	t.TopicCode = code

	query := db.Rebind(`
INSERT INTO topics (` + topicColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = db.ExecContext(ctx, query,
		t.ID, t.Name, t.TopicCode, t.Description, t.Status, t.LecturerID,
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return topic.Topic{}, errors.Wrap(err, "inserting topic")
	}
	return t, nil
}

func (repo topicRepository) QueryTopics(ctx context.Context, filter *topic.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]topic.Topic, error) {
	query := "SELECT " + topicColumns + " FROM topics"
	var clauses []string
	var args []interface{}

	if filter != nil && !filter.IsEmpty() {
		filter.Clean()
		if filter.Search != "" {
			clauses = append(clauses, "(name ILIKE ? OR topic_code ILIKE ? OR description ILIKE ?)")
			like := "%" + filter.Search + "%"
			args = append(args, like, like, like)
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = ?")
			args = append(args, filter.Status)
		}
		if filter.LecturerID != "" {
			clauses = append(clauses, "lecturer_id = ?")
			args = append(args, filter.LecturerID)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += orderingClause(ordering, "created_at DESC")

	db := getExec(repo.exec, exec)
	var rows []topicRow
	if err := selectContext(ctx, db, &rows, db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}

	topics := make([]topic.Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, r.unpack())
	}
	return topics, nil
}

func (repo topicRepository) GetTopic(ctx context.Context, filter topic.GetFilter, exec ...core.DBExecutor) (topic.Topic, error) {
	query := "SELECT " + topicColumns + " FROM topics WHERE "
	var arg interface{}
	switch {
	case filter.ID != "":
		query += "id = ?"
		arg = filter.ID
	case filter.TopicCode != "":
		query += "topic_code = ?"
		arg = filter.TopicCode
	default:
		return topic.Topic{}, topic.ErrNotFound
	}

	db := getExec(repo.exec, exec)
	var r topicRow
	if err := getContext(ctx, db, &r, db.Rebind(query), arg); err != nil {
		return topic.Topic{}, repo.trapNoRowsErr(err, "getting topic")
	}
	return r.unpack(), nil
}

func (repo topicRepository) UpdateTopic(ctx context.Context, t topic.Topic, exec ...core.DBExecutor) (topic.Topic, error) {
	db := getExec(repo.exec, exec)
	query := db.Rebind(`
UPDATE topics
SET name = ?, description = ?, status = ?, lecturer_id = ?, updated_at = ?
WHERE id = ?`)
	res, err := db.ExecContext(ctx, query,
		t.Name, t.Description, t.Status, t.LecturerID, t.UpdatedAt.UTC(), t.ID,
	)
	if err != nil {
		return topic.Topic{}, errors.Wrap(err, "updating topic")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return topic.Topic{}, topic.ErrNotFound
	}
	return t, nil
}

func (repo topicRepository) DeleteTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlxIn("DELETE FROM topics WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting topics")
	}

	db := getExec(repo.exec, exec)
	res, err := db.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting topics")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
