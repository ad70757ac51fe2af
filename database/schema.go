package database

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS authors (
        username TEXT PRIMARY KEY,
        display_name TEXT NOT NULL,
        expertise TEXT NOT NULL DEFAULT '',
        status INTEGER NOT NULL,
        supervisor_name TEXT NOT NULL DEFAULT '',
        supervisor_id TEXT NOT NULL DEFAULT '',
        last_modifier_name TEXT NOT NULL DEFAULT '',
        last_modifier_id TEXT NOT NULL DEFAULT '',
        last_modified INTEGER NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS edit_sessions (
        username TEXT PRIMARY KEY,
        managing_msg TEXT NOT NULL,
        msg_channel TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS posts (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        post_id TEXT NOT NULL UNIQUE,
        thread_id TEXT NOT NULL,
        author TEXT NOT NULL,
        status INTEGER NOT NULL DEFAULT -1,
        supervisor_name TEXT NOT NULL DEFAULT '',
        supervisor_id TEXT NOT NULL DEFAULT '',
        last_seen_epoch INTEGER NOT NULL,
        text TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_posts_thread_status ON posts(thread_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_epoch ON posts(last_seen_epoch);`,
	`CREATE TABLE IF NOT EXISTS contexts (
        context_id TEXT NOT NULL,
        thread_id TEXT NOT NULL,
        owner_post_id TEXT NOT NULL,
        active INTEGER NOT NULL,
        text TEXT NOT NULL,
        PRIMARY KEY (owner_post_id, context_id)
    );`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_thread ON contexts(thread_id);`,
	`CREATE TABLE IF NOT EXISTS threads (
        thread_id TEXT PRIMARY KEY,
        digest_post_id TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS update_queue (
        thread_id TEXT PRIMARY KEY,
        queued_at INTEGER NOT NULL
    );`,
}

// postgresSchema mirrors sqliteSchema with Postgres column types.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS authors (
        username TEXT PRIMARY KEY,
        display_name TEXT NOT NULL,
        expertise TEXT NOT NULL DEFAULT '',
        status INTEGER NOT NULL,
        supervisor_name TEXT NOT NULL DEFAULT '',
        supervisor_id TEXT NOT NULL DEFAULT '',
        last_modifier_name TEXT NOT NULL DEFAULT '',
        last_modifier_id TEXT NOT NULL DEFAULT '',
        last_modified BIGINT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS edit_sessions (
        username TEXT PRIMARY KEY,
        managing_msg TEXT NOT NULL,
        msg_channel TEXT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS posts (
        seq BIGSERIAL PRIMARY KEY,
        post_id TEXT NOT NULL UNIQUE,
        thread_id TEXT NOT NULL,
        author TEXT NOT NULL,
        status INTEGER NOT NULL DEFAULT -1,
        supervisor_name TEXT NOT NULL DEFAULT '',
        supervisor_id TEXT NOT NULL DEFAULT '',
        last_seen_epoch BIGINT NOT NULL,
        text TEXT NOT NULL,
        updated_at BIGINT NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_posts_thread_status ON posts(thread_id, status);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_epoch ON posts(last_seen_epoch);`,
	`CREATE TABLE IF NOT EXISTS contexts (
        context_id TEXT NOT NULL,
        thread_id TEXT NOT NULL,
        owner_post_id TEXT NOT NULL,
        active INTEGER NOT NULL,
        text TEXT NOT NULL,
        PRIMARY KEY (owner_post_id, context_id)
    );`,
	`CREATE INDEX IF NOT EXISTS idx_contexts_thread ON contexts(thread_id);`,
	`CREATE TABLE IF NOT EXISTS threads (
        thread_id TEXT PRIMARY KEY,
        digest_post_id TEXT NOT NULL,
        updated_at BIGINT NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS update_queue (
        thread_id TEXT PRIMARY KEY,
        queued_at BIGINT NOT NULL
    );`,
}
