// Package postgres implements the PostgreSQL persistence layer for the
// gamification engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create user progress tables
-- Version: 001

-- Aggregate progress per user
CREATE TABLE IF NOT EXISTS user_progress (
    user_id VARCHAR(64) PRIMARY KEY,
    total_points INTEGER NOT NULL DEFAULT 0,
    streak_days INTEGER NOT NULL DEFAULT 0,
    cohort VARCHAR(30) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_points CHECK (total_points >= 0),
    CONSTRAINT valid_streak_days CHECK (streak_days >= 0)
);

CREATE INDEX IF NOT EXISTS idx_user_progress_cohort ON user_progress(cohort);
CREATE INDEX IF NOT EXISTS idx_user_progress_points ON user_progress(total_points DESC);
CREATE INDEX IF NOT EXISTS idx_user_progress_cohort_points ON user_progress(cohort, total_points DESC);

-- Per-skill level and experience
CREATE TABLE IF NOT EXISTS user_skills (
    user_id VARCHAR(64) NOT NULL REFERENCES user_progress(user_id) ON DELETE CASCADE,
    skill_id VARCHAR(40) NOT NULL,
    level INTEGER NOT NULL DEFAULT 1,
    experience_points INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, skill_id),
    CONSTRAINT valid_level CHECK (level >= 1 AND level <= 10),
    CONSTRAINT valid_experience CHECK (experience_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_user_skills_skill ON user_skills(skill_id);

-- Points history for auditing awards
CREATE TABLE IF NOT EXISTS points_history (
    id SERIAL PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL REFERENCES user_progress(user_id) ON DELETE CASCADE,
    event_id VARCHAR(100) NOT NULL,
    event_kind VARCHAR(40) NOT NULL,
    delta INTEGER NOT NULL,
    new_total INTEGER NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_points_history_user ON points_history(user_id, created_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS points_history;
DROP TABLE IF EXISTS user_skills;
DROP TABLE IF EXISTS user_progress;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE BADGE AWARDS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create badge award history
-- Version: 002

CREATE TABLE IF NOT EXISTS badge_awards (
    id UUID PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    badge_name VARCHAR(100) NOT NULL,
    category VARCHAR(20) NOT NULL,
    rarity VARCHAR(20) NOT NULL,
    rarity_score INTEGER NOT NULL DEFAULT 0,
    verification_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    expires_at TIMESTAMP WITH TIME ZONE,
    edition_serial INTEGER,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,

    CONSTRAINT valid_category CHECK (category IN ('skill', 'achievement', 'special', 'community')),
    CONSTRAINT valid_rarity CHECK (rarity IN ('common', 'uncommon', 'rare', 'epic', 'legendary')),
    CONSTRAINT valid_verification CHECK (verification_status IN ('pending', 'verified', 'unverified')),
    CONSTRAINT valid_rarity_score CHECK (rarity_score >= 0 AND rarity_score <= 100)
);

-- A user earns each badge at most once
CREATE UNIQUE INDEX IF NOT EXISTS idx_badge_awards_user_badge ON badge_awards(user_id, badge_name);
CREATE INDEX IF NOT EXISTS idx_badge_awards_user ON badge_awards(user_id, awarded_at DESC);
CREATE INDEX IF NOT EXISTS idx_badge_awards_badge ON badge_awards(badge_name);
CREATE INDEX IF NOT EXISTS idx_badge_awards_pending ON badge_awards(verification_status) WHERE verification_status = 'pending';
`

const migration002Down = `
DROP TABLE IF EXISTS badge_awards;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE BADGE EDITIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create limited-edition badge counters
-- Version: 003

-- Serial allocation for limited-edition special badges
CREATE TABLE IF NOT EXISTS badge_editions (
    badge_name VARCHAR(100) PRIMARY KEY,
    edition_total INTEGER NOT NULL,
    next_serial INTEGER NOT NULL DEFAULT 1,

    CONSTRAINT valid_edition_total CHECK (edition_total > 0),
    CONSTRAINT valid_next_serial CHECK (next_serial >= 1)
);
`

const migration003Down = `
DROP TABLE IF EXISTS badge_editions;
`
