package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE documents (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				root_block_id TEXT NOT NULL,
				version INTEGER NOT NULL,
				body JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_documents_created_at ON documents(created_at);
		`,
		2: `
			-- Block kinds per document, for catalog usage queries
			ALTER TABLE documents ADD COLUMN block_kinds TEXT[] NOT NULL DEFAULT '{}';

			CREATE INDEX idx_documents_block_kinds ON documents USING GIN (block_kinds);
		`,
	}
}
