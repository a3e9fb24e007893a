package postgres

// SQL for the webhook ingestion tables. See migrations for the schema.

const (
	// queryRecordWebhookRequest inserts a delivery attempt.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for a replay,
	// which makes the unique constraint the atomic replay check.
	queryRecordWebhookRequest = `
		INSERT INTO webhook_requests (
			idempotency_key, endpoint, request_timestamp, source_ip, received_at
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (idempotency_key, endpoint) DO NOTHING
		RETURNING id
	`

	// queryCountWebhookRequestsSince backs the per-endpoint rate limiter.
	// Count-then-compare is not atomic; concurrent callers can overshoot.
	queryCountWebhookRequestsSince = `
		SELECT COUNT(*)
		FROM webhook_requests
		WHERE endpoint = $1
		  AND received_at >= $2
	`

	queryInsertEventLog = `
		INSERT INTO event_logs (
			id, project_id, event_name, source_system,
			actor_id, contest_id, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	queryGetEventLog = `
		SELECT
			id, project_id, event_name, source_system,
			actor_id, contest_id, metadata, created_at
		FROM event_logs
		WHERE id = $1
	`

	queryInsertDerivedRequest = `
		INSERT INTO derived_requests (
			id, event_log_id, project_id, request_type, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	queryInsertAuditEntry = `
		INSERT INTO audit_entries (
			id, event_log_id, project_id, endpoint, source_ip, user_agent,
			source_system, original_event, standardized_event, was_mapped,
			taxonomy_version, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	// queryEnsureIdentity is an atomic insert-if-absent. A concurrent winner
	// makes this a no-op (0 rows affected), never an error.
	queryEnsureIdentity = `
		INSERT INTO identities (id, display_name, is_placeholder)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	// queryLookupMapping resolves a partner event to its canonical name.
	// Project-specific mappings win over global (project_id IS NULL) ones.
	queryLookupMapping = `
		SELECT standardized_event
		FROM event_mappings
		WHERE source_system = $1
		  AND original_event = $2
		  AND (project_id = $3 OR project_id IS NULL)
		ORDER BY project_id NULLS LAST
		LIMIT 1
	`
)

// Constraint names referenced by error classification.
const (
	constraintEventActorFK     = "event_logs_actor_id_fkey"
	constraintWebhookRequestUQ = "webhook_requests_idempotency_key_endpoint_key"
)

// pq error codes.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)
