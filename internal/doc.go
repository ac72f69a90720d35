// Package internal holds the server's private packages:
//   - api: routing, middleware, page and probe handlers, problem responses
//   - auth: email/password sign-in, sessions, cookie cache, administration
//   - storage/postgres: pgx pool, migrations and sqlc queries
//   - jobs: River client and the expired-session cleanup worker
//   - config, audit, metrics, telemetry: shared infrastructure
package internal
