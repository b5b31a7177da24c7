// Package inmemdb implements the core repositories on in-memory tables.
// It backs tests and local experiments; the exec overrides are ignored.
package inmemdb

import (
	"fmt"
	"sync"

	"github.com/trezcool/utetezi/core/defense"
	"github.com/trezcool/utetezi/core/group"
	"github.com/trezcool/utetezi/core/topic"
	"github.com/trezcool/utetezi/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex

		users            map[string]*user.User
		topics           map[string]*topic.Topic
		groups           map[string]*group.Group
		defenses         map[string]*defense.Defense
		lecturerDefenses map[string]*defense.LecturerDefense

		topicCodeSeq   int
		groupCodeSeq   int
		defenseCodeSeq int
	}
)

func Open() *DB {
	return &DB{
		users:            make(map[string]*user.User),
		topics:           make(map[string]*topic.Topic),
		groups:           make(map[string]*group.Group),
		defenses:         make(map[string]*defense.Defense),
		lecturerDefenses: make(map[string]*defense.LecturerDefense),
	}
}

func (db *DB) nextTopicCode() string {
	db.topicCodeSeq++
	return fmt.Sprintf("TOP%04d", db.topicCodeSeq)
}

func (db *DB) nextGroupCode() string {
	db.groupCodeSeq++
	return fmt.Sprintf("GRP%04d", db.groupCodeSeq)
}

func (db *DB) nextDefenseCode() string {
	db.defenseCodeSeq++
	return fmt.Sprintf("DEF%04d", db.defenseCodeSeq)
}
