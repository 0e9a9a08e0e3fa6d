package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// IMPORTANT: proposals must be created BEFORE contributions due to foreign key constraint.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    password_hash TEXT NOT NULL DEFAULT '',
    has_active_proposal INTEGER NOT NULL DEFAULT 0,
    rank INTEGER NOT NULL DEFAULT 0,
    picture TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS proposals (
    idx INTEGER PRIMARY KEY,
    owner TEXT NOT NULL,
    amount_needed INTEGER NOT NULL,
    funds_raised INTEGER NOT NULL DEFAULT 0,
    status INTEGER NOT NULL,
    is_reclaimable INTEGER NOT NULL DEFAULT 0,
    settlement_pending INTEGER NOT NULL DEFAULT 0,
    settlement_amount INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    deadline INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    goal TEXT NOT NULL DEFAULT '',
    link_institution TEXT NOT NULL DEFAULT '',
    link_pensum TEXT NOT NULL DEFAULT '',
    photos TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS contributions (
    id INTEGER PRIMARY KEY,
    proposal_id INTEGER NOT NULL,
    amount INTEGER NOT NULL,
    contributor TEXT NOT NULL,
    recipient TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (proposal_id) REFERENCES proposals(idx)
);

CREATE TABLE IF NOT EXISTS payments (
    id INTEGER PRIMARY KEY,
    to_id TEXT NOT NULL,
    by_id TEXT NOT NULL,
    amount INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    kind TEXT NOT NULL,
    proposal_id INTEGER NOT NULL DEFAULT 0,
    reference TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_proposals_owner ON proposals(owner);
CREATE INDEX IF NOT EXISTS idx_contributions_proposal_id ON contributions(proposal_id);
CREATE INDEX IF NOT EXISTS idx_contributions_contributor ON contributions(contributor);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
