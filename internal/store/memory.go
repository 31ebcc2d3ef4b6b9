package store

import (
	"context"
	"sort"
	"sync"

	"github.com/worksmart-ai/leadpipe/internal/models"
)

// InMemoryStore is the in-process Store used by tests and ephemeral
// deployments. Safe for concurrent use.
type InMemoryStore struct {
	mu            sync.RWMutex
	leads         map[string]models.LeadRecord
	conversations map[string]models.Conversation
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		leads:         make(map[string]models.LeadRecord),
		conversations: make(map[string]models.Conversation),
	}
}

func (s *InMemoryStore) FindLead(_ context.Context, participantID string) (*models.LeadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.leads[participantID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *InMemoryStore) UpsertLead(_ context.Context, rec models.LeadRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.leads[rec.ParticipantID]
	if ok {
		// Empty contact fields never clobber stored values.
		if rec.Name == "" {
			rec.Name = existing.Name
		}
		if rec.Phone == "" {
			rec.Phone = existing.Phone
		}
		if rec.Service == "" {
			rec.Service = existing.Service
		}
	}
	s.leads[rec.ParticipantID] = rec
	return nil
}

func (s *InMemoryStore) ListLeads(_ context.Context) ([]models.LeadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leads := make([]models.LeadRecord, 0, len(s.leads))
	for _, rec := range s.leads {
		leads = append(leads, rec)
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].ParticipantID < leads[j].ParticipantID })
	return leads, nil
}

func (s *InMemoryStore) GetConversation(_ context.Context, participantID string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[participantID]
	if !ok {
		return nil, nil
	}
	// Copy the slice so callers cannot mutate stored history.
	out := conv
	out.Messages = append([]models.ConversationMessage(nil), conv.Messages...)
	return &out, nil
}

func (s *InMemoryStore) SaveConversation(_ context.Context, conv models.Conversation) error {
	if conv.ParticipantID == "" {
		return models.ErrEmptyParticipantID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.Messages = append([]models.ConversationMessage(nil), conv.Messages...)
	s.conversations[conv.ParticipantID] = conv
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
