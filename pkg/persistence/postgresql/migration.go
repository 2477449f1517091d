package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE projects (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				project_number VARCHAR(100),
				description TEXT,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_projects_created_at ON projects(created_at);

			CREATE TABLE flow_templates (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				type VARCHAR(100),
				version VARCHAR(50),
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				description TEXT,
				created_by VARCHAR(255),
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flow_templates_status ON flow_templates(status);
			CREATE INDEX idx_flow_templates_created_at ON flow_templates(created_at);

			CREATE TABLE flow_instances (
				id UUID PRIMARY KEY,
				project_id UUID NOT NULL REFERENCES projects(id),
				template_id UUID NOT NULL REFERENCES flow_templates(id),
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'running', 'paused', 'stopped', 'completed', 'failed')),
				context JSONB,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				node_data JSONB NOT NULL DEFAULT '{}',
				node_states JSONB NOT NULL DEFAULT '{}',
				node_context JSONB NOT NULL DEFAULT '{}',
				logs JSONB NOT NULL DEFAULT '[]',
				started_at TIMESTAMP WITH TIME ZONE,
				paused_at TIMESTAMP WITH TIME ZONE,
				ended_at TIMESTAMP WITH TIME ZONE,
				created_by VARCHAR(255),
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flow_instances_project_id ON flow_instances(project_id);
			CREATE INDEX idx_flow_instances_template_id ON flow_instances(template_id);
			CREATE INDEX idx_flow_instances_status ON flow_instances(status);
			CREATE INDEX idx_flow_instances_created_at ON flow_instances(created_at);

			-- Uploaded files attached to an instance; rows go with the instance.
			CREATE TABLE instance_documents (
				id UUID PRIMARY KEY,
				instance_id UUID NOT NULL REFERENCES flow_instances(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				content_type VARCHAR(255),
				storage_key VARCHAR(1024),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_instance_documents_instance_id ON instance_documents(instance_id);

			CREATE TABLE users (
				id VARCHAR(255) PRIMARY KEY,
				username VARCHAR(255) NOT NULL,
				roles JSONB NOT NULL DEFAULT '[]'
			);
		`,
	}
}
