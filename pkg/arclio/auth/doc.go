// Package auth drives the arclio login flow and keeps the stored access token
// usable, refreshing it through the provider when it is about to expire.
package auth
