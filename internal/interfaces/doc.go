// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Import Backends
//
//   - importer.Backend: import one directory entry and resolve conflicts
//     (internal/importer/backend.go). Implemented in-process by
//     services.ImportService and over REST by client.Client.
//   - importer.Searcher: directory search producing import candidates.
//   - importer.Chooser: picks one resolution action for a conflict
//     (NestedConfirmChooser, SelectChooser).
//   - importer.ProgressReporter: receives batch progress after every item.
//
// ## Data Access Interfaces
//
//   - ContactStore: contact CRUD, history, CSV (internal/http/stores.go)
//   - SettingsStore: runtime-editable settings (internal/http/stores.go)
//   - NotificationStore: operator notifications (internal/http/stores.go)
//   - BatchQueue: queued batch imports and their progress
//
// ## External Service Interfaces
//
//   - services.DirectoryReader: LDAP search and lookup (internal/directory)
//   - services.PhoneDirectory, http.PhoneLookup: CUCM AXL (internal/cucm)
//   - mail.Sender: outgoing mail (internal/mail)
//
// # Adding a New Import Backend
//
// A backend only needs Import and ResolveConflict:
//
//	type queueBackend struct{ ... }
//
//	func (b *queueBackend) Import(ctx context.Context, dn string) (entities.ImportOutcome, error)
//	func (b *queueBackend) ResolveConflict(ctx context.Context, contactID uint, action entities.ResolutionAction, dn string) error
//
//	var _ importer.Backend = (*queueBackend)(nil)
//
// Transport failures are returned as errors wrapping importer.ErrNetwork and
// backend refusals as *importer.RejectedError; a conflict is an outcome, not
// an error.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
