// Package kinde is the client for the Kinde identity provider endpoints used by the
// arclio login flow: authorization URL construction, the authorization code and
// refresh token grants, and user profile lookup.
package kinde
