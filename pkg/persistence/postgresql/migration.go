package postgresql

// migrations returns the ordered schema migrations for the campaign store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS campaigns (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				job_id TEXT NOT NULL DEFAULT '',
				state JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_campaigns_user_id ON campaigns (user_id);
		`,
	}
}
