package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				type VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'inactive')),
				trigger_type VARCHAR(50) NOT NULL CHECK (trigger_type IN ('event', 'schedule', 'manual')),
				trigger_config JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				conditions JSONB,
				tags TEXT[] NOT NULL DEFAULT '{}',
				priority INT NOT NULL DEFAULT 5,
				timeout_ms BIGINT NOT NULL DEFAULT 0,
				max_retries INT NOT NULL DEFAULT 0,
				error_handling VARCHAR(50) NOT NULL DEFAULT 'abort',
				is_active BOOLEAN NOT NULL DEFAULT false,
				is_template BOOLEAN NOT NULL DEFAULT false,
				execution_count BIGINT NOT NULL DEFAULT 0,
				success_count BIGINT NOT NULL DEFAULT 0,
				failure_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				last_execution_status VARCHAR(50),
				last_error_message TEXT,
				created_by VARCHAR(255),
				notes TEXT,
				version BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_type ON workflows(type);
			CREATE INDEX idx_workflows_trigger_type ON workflows(trigger_type);
			CREATE INDEX idx_workflows_is_template ON workflows(is_template);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_tags ON workflows USING GIN(tags);
		`,
		2: `
			CREATE TABLE workflow_runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				workflow_name VARCHAR(255),
				triggered_by JSONB NOT NULL DEFAULT '{}',
				input_data JSONB,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'timed_out', 'cancelled')),
				action_results JSONB,
				error_message TEXT,
				retry_count INT NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Runs are audit records: no FK to workflows, deletes do not cascade.
			CREATE INDEX idx_workflow_runs_workflow_id ON workflow_runs(workflow_id);
			CREATE INDEX idx_workflow_runs_status ON workflow_runs(status);
			CREATE INDEX idx_workflow_runs_created_at ON workflow_runs(created_at);
		`,
	}
}
