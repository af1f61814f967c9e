package bot

import (
	"sync"

	"patientsim/internal/core"
)

// ConversationStore keeps the conversation context of every user between
// updates and serialises the updates of a single user.
type ConversationStore struct {
	mu    sync.Mutex
	convs map[int64]core.Conversation
	locks map[int64]*userLock
}

// userLock is dropped from the store once no update holds or awaits it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewConversationStore constructs an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		convs: make(map[int64]core.Conversation),
		locks: make(map[int64]*userLock),
	}
}

// Lock blocks until no other update of the user is being handled and
// returns the matching unlock function.
func (s *ConversationStore) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Load returns a copy of the user's conversation, refreshed with the chat
// the update came from.
func (s *ConversationStore) Load(userID, chatID int64) core.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.convs[userID]
	conv.UserID = userID
	if chatID != 0 {
		conv.ChatID = chatID
	}
	return conv
}

// Save stores the conversation.
func (s *ConversationStore) Save(conv core.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[conv.UserID] = conv
}
