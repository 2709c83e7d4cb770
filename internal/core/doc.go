// Package core validates uploaded report files.
//
// This package holds all validation logic independent of any transport. It
// is used by the HTTP server and the CLI without modification.
//
// # Architecture
//
//   - Rules: fixed checks, each a pure function returning a [Verdict].
//   - Parser: turns csv or txt content into a [ParsedTable], trying the txt
//     delimiter candidates in order.
//   - Pipeline: interprets the ordered [Rule] list, records every verdict
//     through a [Recorder] and decides the run's [Status].
//   - Service: the entry point callers use. It assigns run IDs, bounds
//     concurrency and reports each run to a [RunObserver].
//
// # Run Flow
//
//  1. File Type runs first. A mismatch is recorded and ends the run.
//  2. File Name and File Size run and are recorded whatever their result.
//  3. The content is parsed once. A parse failure ends the run with status
//     error; verdicts already recorded stay recorded.
//  4. Headers, Null Values and Empty Rows run against the table.
//  5. If every verdict passed the run is accepted and each verdict is
//     recorded again under the "Validation" rule.
//
// A passing File Type check is not recorded, so an accepted run writes ten
// records: five verdicts and their five summary copies.
//
// # Error Handling
//
// Rule failures are verdicts, not errors. Errors are [*ParseError],
// [*RecordError] and transport or limiter failures, all mapped to
// user-facing messages by [MapError]:
//
//   - PARSE001-PARSE002: the content could not be tokenized
//   - REC001: a verdict could not be persisted
//   - FILE001-FILE005: upload form and file problems
//   - UPL002-UPL005: busy limiter, cancelled or timed out requests
package core
