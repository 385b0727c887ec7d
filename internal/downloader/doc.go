// Package downloader moves source media onto local disk for the transcoder.
// Remote URLs are fetched over HTTP with an optional start rate limit and a
// size cap; uploads are spooled the same way. Every source lands in its own
// uniquely named file in the downloads directory.
package downloader
