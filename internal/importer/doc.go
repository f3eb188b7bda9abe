// Package importer drives directory imports against a Backend.
//
// Two flows are provided:
//
//   - BatchImporter imports an explicit, ordered list of candidates one at a
//     time. Conflicts are counted and left for the operator; errors are
//     counted and the run continues with the next candidate.
//   - Resolver handles a single conflict: a Chooser yields exactly one
//     ResolutionAction and exactly one resolve request is sent.
//
// The Backend is satisfied both by the HTTP client (internal/client) and by
// the in-process import service (internal/services).
package importer
