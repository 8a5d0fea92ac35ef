// Package domain contains the core business entities of the quarry engine:
// documents, passages, query results and the error taxonomy. It has no
// dependencies on adapters or external services.
package domain
