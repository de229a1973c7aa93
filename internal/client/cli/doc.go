// Package cli provides the interactive contact book client.
//
// App is the composition root. NewApp opens the configured key/value
// backend, builds the session and contact stores on top of it, prepares the
// geocoding picker and then App.Run starts a REPL that blocks until the
// user exits.
//
// Commands:
//   - register / login / logout
//   - list, show <id>
//   - add, edit <id>, delete <id>
//   - place [query | lat,lng]
//
// See runREPL for dispatch details.
package cli
