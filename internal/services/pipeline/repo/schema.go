package repo

// pgSchema is applied idempotently at boot when persistence is enabled
var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS translation_cache (
		fingerprint text PRIMARY KEY,
		translated  text NOT NULL,
		hits        bigint NOT NULL DEFAULT 0,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS translation_messages (
		run_id      uuid NOT NULL,
		message_id  bigint NOT NULL,
		created_at  timestamptz NOT NULL,
		finished_at timestamptz NOT NULL,
		code        integer NOT NULL,
		category    text NOT NULL,
		channel     text NOT NULL,
		sender      text NOT NULL,
		original    text NOT NULL,
		plain       text NOT NULL,
		status      text NOT NULL,
		translated  text NOT NULL DEFAULT '',
		engine      text NOT NULL DEFAULT '',
		source_lang text NOT NULL DEFAULT '',
		target_lang text NOT NULL DEFAULT '',
		from_cache  boolean NOT NULL DEFAULT false,
		attempts    integer NOT NULL DEFAULT 0,
		duration_us bigint NOT NULL DEFAULT 0,
		reason      text NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, message_id)
	)`,
	`CREATE INDEX IF NOT EXISTS translation_messages_created_idx ON translation_messages (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS translation_messages_sender_idx ON translation_messages (lower(sender), created_at DESC)`,
}

const chSchema = `CREATE TABLE IF NOT EXISTS translation_audit (
	ts          DateTime64(3, 'UTC'),
	run_id      UUID,
	message_id  Int64,
	channel     LowCardinality(String),
	category    LowCardinality(String),
	sender      String,
	status      LowCardinality(String),
	engine      LowCardinality(String),
	source_lang LowCardinality(String),
	target_lang LowCardinality(String),
	from_cache  Bool,
	attempts    UInt16,
	duration_ms UInt32,
	reason      String
) ENGINE = MergeTree
ORDER BY (ts, message_id)
TTL toDateTime(ts) + INTERVAL 90 DAY`
