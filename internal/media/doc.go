/*
Package media fills in missing thumbnails for the media index.

A pass over the current snapshot generates thumbs/{id}.jpg for each artifact
that has none, using a bounded pool of workers. Existing thumbnails are never
regenerated, and one broken video does not stop the rest of the pass.
*/
package media
