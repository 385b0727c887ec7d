/*
Package identifier derives the cache key for a media reference.

A URL maps to its last path segment without the extension, so
https://i.ylilauta.org/a1/b2/5f3c9e.mp4?x=1 becomes "5f3c9e". An upload maps
to its filename stem. The same reference always yields the same identifier.
Two different sources that share a file name collide; that is accepted.

Identifiers name files directly, so empty stems, "." and "..", separators and
leading dots are rejected with [ErrMalformedReference].
*/
package identifier
