// Package server provides the local HTTP listener that receives the consent redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers method patterns ("GET /callback") on an [http.ServeMux].
// [RequestLogger] and [Recoverer] are the stock middleware; the logger never records query strings.
//
// # Callback Handler
//
// [CallbackHandler] is mounted on the redirect URI path. For each request it:
//   - reports error=access_denied (or any error parameter) as [shared.ErrConsentDenied]
//   - rejects a state that does not match the pending authorization with [shared.ErrStateMismatch]
//   - otherwise replaces the tracked location with the callback URL and calls EnsureToken, which
//     classifies the session as code-pending and performs the exchange
//
// Each outcome is delivered on [CallbackHandler.Results]. An unread result is replaced by a newer one.
//
// # Lifetime
//
// [Listen] binds before returning and serves until [Server.Shutdown]. The CLI starts one listener
// per command that may need consent; the TUI keeps one open for the whole session.
package server
