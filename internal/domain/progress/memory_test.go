package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

func seededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.Seed(shared.UserProgress{
		UserID:      "user-1",
		TotalPoints: 100,
		Cohort:      "2026-spring",
		StreakDays:  3,
		Skills: map[shared.SkillID]shared.SkillLevel{
			"python": {Level: 3, ExperiencePoints: 150},
		},
	})
	return s
}

func TestMemoryStoreGet(t *testing.T) {
	s := seededMemoryStore()

	p, err := s.Get(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, shared.Points(100), p.TotalPoints)

	_, err = s.Get(context.Background(), "nobody")
	assert.True(t, shared.IsNotFound(err))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := seededMemoryStore()

	p, _ := s.Get(context.Background(), "user-1")
	p.TotalPoints = 9999
	p.Skills["python"] = shared.SkillLevel{Level: 10}

	again, _ := s.Get(context.Background(), "user-1")
	assert.Equal(t, shared.Points(100), again.TotalPoints)
	assert.Equal(t, 3, again.Skills["python"].Level)
}

func TestMemoryStoreUpdate(t *testing.T) {
	s := seededMemoryStore()

	updated, err := s.Update(context.Background(), "user-1", shared.ProgressDelta{
		PointsDelta: 50,
		SkillExperience: map[shared.SkillID]int{
			"python": 30,
			"sql":    20,
		},
		StreakDays: 4,
	})
	assert.NoError(t, err)

	assert.Equal(t, shared.Points(150), updated.TotalPoints)
	assert.Equal(t, 180, updated.Skills["python"].ExperiencePoints)
	assert.Equal(t, 4, updated.StreakDays)
	assert.False(t, updated.UpdatedAt.IsZero())

	// New skills start at level 1.
	assert.Equal(t, 1, updated.Skills["sql"].Level)
	assert.Equal(t, 20, updated.Skills["sql"].ExperiencePoints)

	_, err = s.Update(context.Background(), "nobody", shared.ProgressDelta{StreakDays: -1})
	assert.True(t, shared.IsNotFound(err))
}

func TestMemoryStoreNegativeStreakKeepsCurrent(t *testing.T) {
	s := seededMemoryStore()

	updated, err := s.Update(context.Background(), "user-1", shared.ProgressDelta{
		PointsDelta: 10,
		StreakDays:  -1,
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, updated.StreakDays)
}

func TestMemoryStoreAtomicIncrement(t *testing.T) {
	s := seededMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), "user-1", shared.ProgressDelta{
				PointsDelta:     2,
				SkillExperience: map[shared.SkillID]int{"python": 1},
				StreakDays:      -1,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := s.Get(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, shared.Points(200), p.TotalPoints)
	assert.Equal(t, 200, p.Skills["python"].ExperiencePoints)
}
