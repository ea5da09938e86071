package progress

import (
	"context"
	"sync"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// MemoryStore is an in-process Store for tests and single-node
// development runs. The mutex provides the atomic-increment guarantee
// the contract requires.
type MemoryStore struct {
	mu    sync.Mutex
	users map[shared.UserID]*shared.UserProgress
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[shared.UserID]*shared.UserProgress)}
}

// Seed inserts or replaces a user's progress record.
func (s *MemoryStore) Seed(p shared.UserProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[p.UserID] = clone(&p)
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, userID shared.UserID) (*shared.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.users[userID]
	if !ok {
		return nil, shared.ErrUserProgressNotFound
	}
	return clone(p), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, userID shared.UserID, delta shared.ProgressDelta) (*shared.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.users[userID]
	if !ok {
		return nil, shared.ErrUserProgressNotFound
	}

	p.TotalPoints = p.TotalPoints.Add(delta.PointsDelta)
	for skill, xp := range delta.SkillExperience {
		level, exists := p.Skills[skill]
		if !exists {
			level = shared.SkillLevel{Level: 1}
		}
		level.ExperiencePoints += xp
		p.Skills[skill] = level
	}
	if delta.StreakDays >= 0 {
		p.StreakDays = delta.StreakDays
	}
	p.UpdatedAt = time.Now().UTC()

	return clone(p), nil
}

func clone(p *shared.UserProgress) *shared.UserProgress {
	cp := *p
	cp.Skills = make(map[shared.SkillID]shared.SkillLevel, len(p.Skills))
	for k, v := range p.Skills {
		cp.Skills[k] = v
	}
	return &cp
}
