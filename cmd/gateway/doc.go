// Package main hosts the compliance gateway entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, audit, consent, and checklist endpoints. Request bodies
//     are decoded and validated before any backend is touched.
//   - Audit relay: POST /api/audit forwards the request to the audit scraper (see cmd/auditscraper) with a single
//     bounded attempt; the scraper's verdict is returned as-is.
//   - Persistence: consent templates are written as JSON documents to the configured BlobStore (gcs/local/memory);
//     checklist tasks live in Postgres, SQLite, or memory.
//   - Credentials: the audit endpoint URL, the storage key, and the database password are resolved once at startup
//     from the configured vault (env or AWS Secrets Manager). A missing secret aborts startup.
//
// Quick checklist:
//   - Configure env vars: COMPLIANCE_SERVER_PORT, COMPLIANCE_STORAGE_*, COMPLIANCE_DB_*, COMPLIANCE_SECRETS_PROVIDER.
//   - Run locally: go run ./cmd/gateway -config config.yaml (or rely solely on env overrides).
package main
