/*
Package store implements the artifact store: a flat directory where each
converted item lives at {root}/{id}.mp4 with an optional thumbnail at
{thumbs}/{id}.jpg.

Writers never touch the canonical path directly. They write to a hidden
temporary from [Store.TempPathFor] and publish it with [Store.Commit], a
rename within the same directory, so readers see either the previous file or
the complete new one. [Store.List] skips the temporaries.

The store holds no in-process lock. Exclusive use of a data directory across
processes is taken with [AcquireLock].
*/
package store
