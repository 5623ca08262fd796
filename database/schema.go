package database

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS queue (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        guild_id TEXT NOT NULL,
        type TEXT NOT NULL,
        content TEXT NOT NULL,
        author TEXT,
        author_id TEXT,
        author_image TEXT,
        duration INTEGER NOT NULL,
        execution_date INTEGER NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_queue_execution ON queue(execution_date, id);`,
	`CREATE INDEX IF NOT EXISTS idx_queue_guild_execution ON queue(guild_id, execution_date);`,
	`CREATE TABLE IF NOT EXISTS guilds (
        id TEXT PRIMARY KEY,
        busy_until INTEGER,
        default_duration INTEGER,
        max_duration INTEGER,
        display_full BOOLEAN
    );`,
	`CREATE TABLE IF NOT EXISTS blocked_users (
        user_id TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        blocked_by TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        PRIMARY KEY (user_id, guild_id)
    );`,
	`CREATE TABLE IF NOT EXISTS blacklist (
        user_id TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        PRIMARY KEY (user_id, guild_id)
    );`,
	`CREATE TABLE IF NOT EXISTS votes (
        target_user_id TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        voter_id TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        PRIMARY KEY (target_user_id, guild_id, voter_id)
    );`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS queue (
        id BIGSERIAL PRIMARY KEY,
        guild_id TEXT NOT NULL,
        type TEXT NOT NULL,
        content TEXT NOT NULL,
        author TEXT,
        author_id TEXT,
        author_image TEXT,
        duration INTEGER NOT NULL,
        execution_date BIGINT NOT NULL
    );`,
	`CREATE INDEX IF NOT EXISTS idx_queue_execution ON queue(execution_date, id);`,
	`CREATE INDEX IF NOT EXISTS idx_queue_guild_execution ON queue(guild_id, execution_date);`,
	`CREATE TABLE IF NOT EXISTS guilds (
        id TEXT PRIMARY KEY,
        busy_until BIGINT,
        default_duration INTEGER,
        max_duration INTEGER,
        display_full BOOLEAN
    );`,
	`CREATE TABLE IF NOT EXISTS blocked_users (
        user_id TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        blocked_by TEXT NOT NULL,
        created_at BIGINT NOT NULL,
        PRIMARY KEY (user_id, guild_id)
    );`,
	`CREATE TABLE IF NOT EXISTS blacklist (
        user_id TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        created_at BIGINT NOT NULL,
        PRIMARY KEY (user_id, guild_id)
    );`,
	`CREATE TABLE IF NOT EXISTS votes (
        target_user_id TEXT NOT NULL,
        guild_id TEXT NOT NULL,
        voter_id TEXT NOT NULL,
        created_at BIGINT NOT NULL,
        PRIMARY KEY (target_user_id, guild_id, voter_id)
    );`,
}
