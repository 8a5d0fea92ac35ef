// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports). The core consumes external services such as
// completion, embedding, vector storage and document sources only through
// these narrow interfaces.
package driven
