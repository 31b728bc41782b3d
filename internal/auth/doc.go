// Package auth provides bearer-token authentication and role-based
// authorisation for the binding's HTTP API.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. They carry a
// subject and a role; the role maps to a static permission set:
//
//	user  → binding:read, binding:operate
//	admin → user + binding:configure
//	owner → admin
//
// There is no user database. Tokens are minted by the operator with
// `veluxbinding token` and validated by signature and expiry only.
package auth
