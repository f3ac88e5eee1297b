// Package extract pulls job identifiers, status text, and download URLs
// out of loosely-structured tool responses.
//
// Backend tools return job metadata inconsistently: as flat top-level
// fields, or serialized as JSON inside the generic content-block wrapper
// used by tool-calling protocols. Each extractor tries a fixed priority
// chain of typed lookups and treats malformed nested JSON as a non-match,
// so the orchestrator above stays a clean state machine.
package extract
