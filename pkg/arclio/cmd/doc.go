// Package cmd holds the cobra command tree of the arclio CLI.
package cmd
