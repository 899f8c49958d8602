// Package services defines shared utilities consumed by the crawl engine and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, work identifiers, families,
//     and run phases for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy closed: expected absence, transient provider failures, asset
//     fetch failures, persistence failures, validation, and configuration.
//   - The mapping from an error to the journal status a finished run should
//     record.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the crawler.
package services
