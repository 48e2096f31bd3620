package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				publish BOOLEAN NOT NULL DEFAULT false,
				discord_template TEXT NOT NULL DEFAULT '',
				slack_template TEXT NOT NULL DEFAULT '',
				slack_access_token TEXT NOT NULL DEFAULT '',
				slack_channels TEXT[] NOT NULL DEFAULT '{}',
				notion_template TEXT NOT NULL DEFAULT '',
				notion_access_token TEXT NOT NULL DEFAULT '',
				notion_db_id TEXT NOT NULL DEFAULT '',
				email_template TEXT NOT NULL DEFAULT '',
				email_config JSONB,
				github_template TEXT NOT NULL DEFAULT '',
				github_config JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_user_id ON workflows(user_id);
			CREATE INDEX idx_workflows_user_publish ON workflows(user_id, publish);
		`,
		2: `
			CREATE TABLE connections (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL,
				external_id VARCHAR(255) NOT NULL DEFAULT '',
				credentials JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT connections_user_type_key UNIQUE (user_id, type)
			);

			CREATE UNIQUE INDEX idx_connections_user_external
				ON connections(user_id, external_id)
				WHERE external_id <> '';
		`,
	}
}
