package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/assistant"
	"github.com/darasahq/darasa/core/chat"
	"github.com/darasahq/darasa/core/credit"
	"github.com/darasahq/darasa/core/document"
	"github.com/darasahq/darasa/core/feedback"
)

// UserRecord is the minimal account row the in-memory store keeps; it
// backs participant briefs and instructor notification lookups.
type UserRecord struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
	Role      string
}

// DB is an in-memory stand-in for the postgres store, used by tests and
// local development.
type DB struct {
	mutex sync.RWMutex

	users         map[string]UserRecord
	assistants    map[string]assistant.Assistant
	conversations map[string]chat.Conversation
	messages      []chat.StoredMessage
	documents     map[string]document.Document
	feedback      []feedback.Feedback
	creditEntries []credit.Entry
}

func NewDB() *DB {
	return &DB{
		users:         make(map[string]UserRecord),
		assistants:    make(map[string]assistant.Assistant),
		conversations: make(map[string]chat.Conversation),
		documents:     make(map[string]document.Document),
	}
}

// AddUser seeds an account row.
func (db *DB) AddUser(u UserRecord) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.users[u.ID] = u
}
