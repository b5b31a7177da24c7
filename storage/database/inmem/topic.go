package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/topic"
)

type topicRepository struct {
	db *DB
}

var _ topic.Repository = (*topicRepository)(nil)

func NewTopicRepository(db *DB) *topicRepository {
	return &topicRepository{db: db}
}

func (repo *topicRepository) CreateTopic(ctx context.Context, t topic.Topic, exec ...core.DBExecutor) (topic.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.New().String()
	t.TopicCode = repo.db.nextTopicCode()
	repo.db.topics[t.ID] = &t
	return t, nil
}

func (repo *topicRepository) QueryTopics(ctx context.Context, filter *topic.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]topic.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var topics []topic.Topic
	for _, t := range repo.db.topics {
		if filter != nil && !matchTopic(*t, filter) {
			continue
		}
		topics = append(topics, *t)
	}
	return topics, nil
}

func matchTopic(t topic.Topic, filter *topic.QueryFilter) bool {
	if filter.Status != "" && t.Status != filter.Status {
		return false
	}
	if filter.LecturerID != "" && t.LecturerID.String != filter.LecturerID {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(t.Name+" "+t.TopicCode+" "+t.Description), s) {
			return false
		}
	}
	return true
}

func (repo *topicRepository) GetTopic(ctx context.Context, filter topic.GetFilter, exec ...core.DBExecutor) (topic.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.topics[filter.ID]; ok {
			return *t, nil
		}
		return topic.Topic{}, topic.ErrNotFound
	}
	if filter.TopicCode != "" {
		for _, t := range repo.db.topics {
			if t.TopicCode == filter.TopicCode {
				return *t, nil
			}
		}
	}
	return topic.Topic{}, topic.ErrNotFound
}

func (repo *topicRepository) UpdateTopic(ctx context.Context, t topic.Topic, exec ...core.DBExecutor) (topic.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.topics[t.ID]; !ok {
		return topic.Topic{}, topic.ErrNotFound
	}
	repo.db.topics[t.ID] = &t
	return t, nil
}

func (repo *topicRepository) DeleteTopicsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.topics[id]; ok {
			delete(repo.db.topics, id)
			n++
		}
	}
	return n, nil
}
