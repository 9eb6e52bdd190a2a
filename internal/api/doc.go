// Package api hosts the HTTP servers, middleware, and JSON handlers for both
// deployables. Gateway routes:
//   - POST /api/audit forwards an audit to the scraper.
//   - POST/GET /api/consent stores and reads the consent template.
//   - POST/GET /api/checklist adds and lists checklist tasks.
//   - GET /health for liveness and GET /metrics for Prometheus scraping.
//
// The scraper serves POST /api/audit, /health and /metrics.
package api
