// Command gametrack is the command-line client for the gametrack daemon.
//
// It submits library rows for enrichment, controls the running session,
// follows progress, and lists resolved metadata over the daemon's HTTP API.
// "gametrack run" hosts the daemon in the foreground.
package main
