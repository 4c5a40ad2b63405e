// Package accounts implements the account lifecycle for a single user role:
// registration, email confirmation, login, password reset and profile
// management, exposed as JSON handlers over go-router.
//
// Tokens:
//   - Every account carries at most one single-use token. The same field is
//     used for email confirmation and for password reset; issuing a new token
//     overwrites the pending one and a successful use clears it.
//   - Tokens may optionally expire (see Config.GetTokenTTL). An expired token
//     is indistinguishable from an unknown one.
//
// Notifications:
//   - Confirmation and reset emails go through a Notifier. AccountService
//     dispatches them in the background; delivery failures are logged and
//     never reach the caller. Call AsyncNotifier.Wait during shutdown to
//     drain in-flight deliveries.
//
// Storage:
//   - CredentialStore is implemented over bun (sqlite, postgres) by
//     NewAccountsRepository and over MongoDB by the mongostore package. Both
//     rely on a unique index on email so concurrent registrations with the
//     same address resolve to ErrDuplicateEmail.
package accounts
