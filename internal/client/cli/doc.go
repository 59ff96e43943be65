// Package cli provides the interactive catalogkeeper command-line client.
//
// It wires configuration, the encrypted local token cache, the HTTP API
// client and an interactive REPL. Typical flow: restore a cached session
// if one is still valid, start a background connectivity watcher, and
// execute user commands until exit.
//
// Key features:
//   - Register / Login / Logout / WhoAmI
//   - List and show products (no login required)
//   - Add, edit and delete products, upload product images (Admin only)
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
