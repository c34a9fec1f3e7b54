package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROGRESS RECORDS AND ACCOUNTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Visitor/account progress snapshots: at most one record per
-- (owner, kind, unit index), payload replaced in full on save.
CREATE TABLE IF NOT EXISTS progress_records (
    id UUID PRIMARY KEY,
    owner_kind VARCHAR(10) NOT NULL,
    owner_id VARCHAR(64) NOT NULL,
    kind VARCHAR(10) NOT NULL,
    unit_index INTEGER NOT NULL,
    payload JSONB NOT NULL,
    linked_email VARCHAR(255),
    linked_account VARCHAR(64),
    migrated_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(owner_kind, owner_id, kind, unit_index),
    CONSTRAINT valid_owner_kind CHECK (owner_kind IN ('visitor', 'account')),
    CONSTRAINT valid_record_kind CHECK (kind IN ('form', 'checklist')),
    CONSTRAINT valid_unit_index CHECK (unit_index >= 0)
);

CREATE INDEX IF NOT EXISTS idx_progress_records_owner ON progress_records(owner_kind, owner_id);
CREATE INDEX IF NOT EXISTS idx_progress_records_email ON progress_records(linked_email) WHERE linked_email IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_progress_records_account ON progress_records(linked_account) WHERE linked_account IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_progress_records_unmigrated ON progress_records(owner_kind, owner_id) WHERE migrated_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_progress_records_stale ON progress_records(updated_at) WHERE owner_kind = 'visitor' AND linked_email IS NULL AND linked_account IS NULL;

-- Accounts known to the engine. The site owns registration; this table
-- carries only what progress tracking needs.
CREATE TABLE IF NOT EXISTS accounts (
    id VARCHAR(64) PRIMARY KEY,
    email VARCHAR(255) NOT NULL UNIQUE,
    total_xp INTEGER NOT NULL DEFAULT 0,
    last_active_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_total_xp CHECK (total_xp >= 0)
);

CREATE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
`

const migration001Down = `
DROP TABLE IF EXISTS accounts;
DROP TABLE IF EXISTS progress_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PERMANENT PROGRESS STORAGE
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Permanent form responses, one per (account, unit). First migration wins;
-- later visitor snapshots for the same unit are skipped.
CREATE TABLE IF NOT EXISTS form_responses (
    id UUID PRIMARY KEY,
    account_id VARCHAR(64) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    unit_index INTEGER NOT NULL,
    answers JSONB NOT NULL,
    generated_content JSONB,
    source_visitor_id VARCHAR(64),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(account_id, unit_index),
    CONSTRAINT valid_form_unit_index CHECK (unit_index >= 0)
);

CREATE INDEX IF NOT EXISTS idx_form_responses_account ON form_responses(account_id, unit_index);

-- Permanent checklist completions, one row per item so migration is
-- idempotent at item level across overlapping visitor sessions.
CREATE TABLE IF NOT EXISTS checklist_completions (
    id UUID PRIMARY KEY,
    account_id VARCHAR(64) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    unit_index INTEGER NOT NULL,
    item_id VARCHAR(128) NOT NULL,
    source_visitor_id VARCHAR(64),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(account_id, unit_index, item_id),
    CONSTRAINT valid_checklist_unit_index CHECK (unit_index >= 0)
);

CREATE INDEX IF NOT EXISTS idx_checklist_completions_account ON checklist_completions(account_id, unit_index);
`

const migration002Down = `
DROP TABLE IF EXISTS checklist_completions;
DROP TABLE IF EXISTS form_responses;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: LEARNING STATE
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Per-unit completion state.
CREATE TABLE IF NOT EXISTS completion_states (
    account_id VARCHAR(64) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    unit_slug VARCHAR(64) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'in-progress',
    completed_sub_units JSONB NOT NULL DEFAULT '[]'::jsonb,
    quiz_score DOUBLE PRECISION,
    time_spent_minutes INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    completed_at TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (account_id, unit_slug),
    CONSTRAINT valid_completion_status CHECK (status IN ('not-started', 'in-progress', 'completed')),
    CONSTRAINT valid_quiz_score CHECK (quiz_score IS NULL OR (quiz_score >= 0 AND quiz_score <= 100))
);

CREATE INDEX IF NOT EXISTS idx_completion_states_account ON completion_states(account_id);
CREATE INDEX IF NOT EXISTS idx_completion_states_completed ON completion_states(account_id) WHERE status = 'completed';

-- Unlock records are monotonic: inserted once, never removed.
CREATE TABLE IF NOT EXISTS unlock_records (
    account_id VARCHAR(64) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    unit_slug VARCHAR(64) NOT NULL,
    reason VARCHAR(20) NOT NULL,
    unlocked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (account_id, unit_slug),
    CONSTRAINT valid_unlock_reason CHECK (reason IN ('default', 'prerequisite', 'achievement', 'manual'))
);

CREATE INDEX IF NOT EXISTS idx_unlock_records_account ON unlock_records(account_id, unlocked_at);

-- Daily streak head state plus a bounded history window of day entries.
CREATE TABLE IF NOT EXISTS streak_states (
    account_id VARCHAR(64) PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND longest_streak >= current_streak)
);

CREATE TABLE IF NOT EXISTS streak_days (
    account_id VARCHAR(64) NOT NULL REFERENCES streak_states(account_id) ON DELETE CASCADE,
    date DATE NOT NULL,
    minutes INTEGER NOT NULL DEFAULT 0,
    lessons_completed INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (account_id, date)
);

CREATE INDEX IF NOT EXISTS idx_streak_days_account_date ON streak_days(account_id, date DESC);

-- Achievement grants, at most one per (account, code).
CREATE TABLE IF NOT EXISTS achievement_grants (
    account_id VARCHAR(64) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    code VARCHAR(64) NOT NULL,
    reward_xp INTEGER NOT NULL DEFAULT 0,
    secret BOOLEAN NOT NULL DEFAULT FALSE,
    granted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    notified BOOLEAN NOT NULL DEFAULT FALSE,

    PRIMARY KEY (account_id, code)
);

CREATE INDEX IF NOT EXISTS idx_achievement_grants_account ON achievement_grants(account_id, granted_at);
`

const migration003Down = `
DROP TABLE IF EXISTS achievement_grants;
DROP TABLE IF EXISTS streak_days;
DROP TABLE IF EXISTS streak_states;
DROP TABLE IF EXISTS unlock_records;
DROP TABLE IF EXISTS completion_states;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_progress_and_accounts", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_permanent_storage", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_learning_state", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}
