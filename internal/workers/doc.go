/*
Package workers sizes background worker pools from GOMAXPROCS, which Go sets
from the container CPU limit, rather than runtime.NumCPU, which reports the
host.

The thumbnail pass runs one ffmpeg process per worker, so it uses
[ForThumbnails]:

	pool := workers.ForThumbnails(4)

Set THUMBNAIL_WORKERS to pin the pool size.
*/
package workers
