// Package dispatch turns trigger URLs into executed actions.
//
// A trigger flows through HandleURL in a fixed order:
//   - a trigger ID is assigned and the raw payload is recorded in history
//   - the payload is decoded (double percent-decoding, then JSON)
//   - the decoded instruction is routed to exactly one action handler
//   - the outcome is written to history and published on the event hub
//
// Error handling:
//   - Malformed URL or payload → rejected, nothing executed
//   - Command other than "run" → ignored
//   - Unknown action type → ignored, nothing executed
//   - Replace → not_implemented
//   - Handler error (filesystem, spawn) → failed
//   - Script actions stay running until the runner reports back through
//     ObserveScript (succeeded, failed, timed_out, killed)
//
// Every failure is logged once and ends the trigger. Nothing is retried and
// no failure escapes HandleURL, including handler panics.
package dispatch
