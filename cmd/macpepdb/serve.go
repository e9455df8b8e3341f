package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

// errServeOutOfScope is returned by the serve command. spec.md §6 lists
// "serve" among the original CLI's collaborators, but an HTTP/JSON query
// API is an explicit Non-goal here (SPEC_FULL.md); the subcommand stays
// in the CLI surface for discoverability and fails loudly instead of
// silently doing nothing.
var errServeOutOfScope = errors.New("serve: an HTTP query API is out of scope; use precursor-range to inspect a compiled predicate directly")

// serveCommand is a documented stub: macpepdb never grew an HTTP server
// in this port.
func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Not implemented: HTTP query API is out of scope.",
		Action: func(c *cli.Context) error {
			return errServeOutOfScope
		},
	}
}
