// Package novaguard provides the shared clinical types for the Nova Guard
// prescription safety service: prescriptions, safety flags, verdicts, and
// patient profiles.
//
// The interesting machinery lives in the subpackages:
//
//   - workflow: the sequential step executor with append-only run state
//   - event: the progress/complete/error wire vocabulary
//   - stream: frame codec, delta-to-event emitter, and SSE transport
//   - client: the stream consumer with a chunk-tolerant frame decoder
//   - pipeline: the clinical steps (classify, intake, audit, lookup, ...)
//   - fda: OpenFDA and RxNorm lookups with TTL caching
//   - store: patient, session, and audit persistence on SQLite
package novaguard
