// Package callback runs the short-lived loopback HTTP listener that receives the
// OAuth redirect of a browser login. A listener records exactly one result (the
// first redirect wins) and hands it to the waiting login flow.
package callback
