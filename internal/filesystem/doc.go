/*
Package filesystem wraps the few filesystem calls the artifact store makes
(stat, readdir, rename) with retry logic for NFS stale file handle errors.

The converted directory is often a network mount shared with a reverse proxy.
ESTALE (errno 116) is transient there, so it is retried with exponential
backoff (3 attempts, 50ms doubling to a 500ms cap by default). Every other
error is returned immediately; this is transport resilience, not a request
retry.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Operation latency, errors and retries are reported through an [Observer]
labelled by volume, resolved from the path with a [VolumeResolver].
*/
package filesystem
