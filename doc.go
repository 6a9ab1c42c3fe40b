// Package lobby serves the account surface of the casino lobby: the register
// modal, the session boundary shared by every page, the navigation shell and
// the multi-step settings forms.
//
// Registration flow:
//   - Registrar drives one attempt at a time through Idle, Validating,
//     AwaitingProvider, AwaitingBackendRecord and then Succeeded or Failed.
//     Required fields are checked before any external call is made.
//   - Identities are created by an IdentityProvider (Firebase in production,
//     see provider/firebase). Application user records are created by a
//     RecordCreator (the backend HTTP API, see backend, or a local bun store,
//     see store).
//   - When the record cannot be created the provider identity is orphaned.
//     Registrar always hands it to the configured OrphanHandler before the
//     failure is reported. Policies live in orphan.go.
//
// Session boundary:
//   - SessionBoundary owns the session cookie. Its middleware exposes the
//     current Identity to handlers and views; only AuthController writes to it.
package lobby
