/*
Package converter implements the conversion cache.

[Cache.Resolve] takes a media reference and returns the public URL of its
canonical artifact:

 1. The identifier is derived from the reference. Failure is reported as
    identifier.ErrMalformedReference.
 2. If the store already holds the artifact the URL is returned at once.
 3. Otherwise the source is downloaded (or an upload spooled) and
    transcoded, and the URL of the new artifact is returned.

Step 3 runs at most once at a time per identifier. Callers that arrive while
a conversion is running wait for it and receive the same result. Errors are
classified by [Kind] into malformed_reference, download_failed,
conversion_failed and internal.

Failed conversions never leave a file at the canonical path, and temporary
inputs are removed whatever the outcome.
*/
package converter
