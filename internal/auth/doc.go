// Package auth holds the request protection shared by all routes: CSRF
// checks, security headers and the server-side session store.
//
// Browser requests must carry a CSRF token obtained from GET /api/csrf-token
// (header X-CSRF-Token). The CLI skips CSRF by sending the configured API
// token:
//
//	AUTH_API_TOKEN=<random string>     # empty disables bearer access
//	AUTH_SESSION_SECRET=<32+ bytes>    # persisted in the settings table if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_SECURE_COOKIES=true           # HTTPS-only cookies
//
// Sessions live in the sessions table of the main SQLite database and carry
// the pending MAC/PIN import between preview and confirmation.
package auth
