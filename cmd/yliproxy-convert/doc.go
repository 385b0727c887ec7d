// Command yliproxy-convert converts media links and local files into the
// same artifact store the yliproxy server publishes.
//
// Usage:
//
//	yliproxy-convert convert <url|file>...
//	yliproxy-convert list
//
// convert resolves each argument in order. An argument naming a regular
// file is uploaded; anything else is treated as a URL. Existing artifacts
// are returned without converting again. The public URL is printed on its
// own line when stdout is a pipe, so the output can be fed to other tools.
//
// list prints every artifact, newest first.
//
// The data directory is locked while converting, so the command fails
// with "data directory is in use" while a server owns the same DATA_PATH.
//
// Environment:
//
// The command reads the same variables as the server, most importantly
// DATA_PATH, PUBLIC_URL, FFMPEG_BIN and FFMPEG_ARGS. --log-level overrides
// LOG_LEVEL.
package main
