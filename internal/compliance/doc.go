// Package compliance defines the records, collaborator interfaces, and error
// taxonomy shared by the gateway, the audit dispatcher, and the audit scraper.
package compliance
