// Package auth issues and validates the bearer tokens that protect the
// device HTTP and websocket surfaces.
//
// Tokens are HS256 JWTs carrying a subject and a Role. Roles map to a
// static permission table (compile-time, no database lookup):
//
//	user   device:read, device:operate
//	admin  user's permissions plus device:configure, location:manage
package auth
