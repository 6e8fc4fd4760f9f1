// Package credentials persists the single set of OAuth tokens and user identity the
// arclio CLI works with. Records are flat JSON objects; every write is a
// read-merge-write so partial updates never drop unrelated or unknown keys.
package credentials
