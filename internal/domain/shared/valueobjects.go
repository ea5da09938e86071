// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID identifies a learner across the whole engine.
type UserID string

// IsValid checks that the user ID is non-empty and has no whitespace.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) > 0 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	u := UserID(id)
	if !u.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, fmt.Sprintf("invalid user ID %q", id))
	}
	return u, nil
}

// SkillID identifies a skill tag (e.g. "python", "algorithms").
type SkillID string

// Skill tags are lowercase identifiers; the same format the AI analysis
// provider emits in its detected-skills list.
var skillIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_+.-]{0,39}$`)

// IsValid checks if the skill ID is well formed.
func (s SkillID) IsValid() bool {
	return skillIDRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SkillID) String() string {
	return string(s)
}

// ═══════════════════════════════════════════════════════════════════════════
// Points & Skills
// ═══════════════════════════════════════════════════════════════════════════

// Points represents a non-negative points amount.
type Points int

// IsValid checks that the points value is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Add returns the sum of two points values.
func (p Points) Add(delta Points) Points {
	return p + delta
}

// Int returns the underlying int value.
func (p Points) Int() int {
	return int(p)
}

// SkillLevel is a user's standing in a single skill.
type SkillLevel struct {
	// Level is the current level, 1-10.
	Level int

	// ExperiencePoints is the XP accumulated in this skill.
	ExperiencePoints int
}

// IsValid checks skill level bounds.
func (s SkillLevel) IsValid() bool {
	return s.Level >= 0 && s.Level <= 10 && s.ExperiencePoints >= 0
}

// ═══════════════════════════════════════════════════════════════════════════
// User Progress Snapshot
// ═══════════════════════════════════════════════════════════════════════════

// UserProgress is the engine's read model of a user's state: the total
// points balance plus per-skill levels. It is loaded from the external
// progress store at the start of a reward flow and never mutated by the
// engine itself.
type UserProgress struct {
	// UserID owns this progress record.
	UserID UserID

	// TotalPoints is the user's current point balance.
	TotalPoints Points

	// Skills maps skill IDs to the user's standing in each.
	Skills map[SkillID]SkillLevel

	// StreakDays is the current consecutive-activity streak.
	StreakDays int

	// Cohort groups users for ranking purposes (optional).
	Cohort string

	// UpdatedAt is when the store last wrote this record.
	UpdatedAt time.Time
}

// MaxSkillLevel returns the highest level across all skills (0 when none).
func (p *UserProgress) MaxSkillLevel() int {
	max := 0
	for _, s := range p.Skills {
		if s.Level > max {
			max = s.Level
		}
	}
	return max
}

// TotalExperience returns experience points summed across all skills.
func (p *UserProgress) TotalExperience() int {
	total := 0
	for _, s := range p.Skills {
		total += s.ExperiencePoints
	}
	return total
}

// SkillLevelOf returns the level for a skill and whether it is present.
func (p *UserProgress) SkillLevelOf(id SkillID) (int, bool) {
	s, ok := p.Skills[id]
	if !ok {
		return 0, false
	}
	return s.Level, true
}

// ProgressDelta describes the changes a reward flow applies to a user's
// progress record. The store applies PointsDelta as an atomic increment.
type ProgressDelta struct {
	// PointsDelta is added to the stored total (atomic read-modify-write
	// is the store's responsibility).
	PointsDelta Points

	// SkillExperience adds XP to individual skills (created at level 1
	// when absent).
	SkillExperience map[SkillID]int

	// StreakDays replaces the stored streak when non-negative.
	StreakDays int
}
