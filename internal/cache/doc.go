// Package cache implements the content-addressed HTTP response cache. A request
// key (the URL) is fingerprinted with SHA-256; the response body is stored at
// <root>/<digest> and the original key at <root>/<digest>.url. Entries are
// written once and never mutated: Cache.Retrieve serves an existing payload
// as-is and only reaches the network when the payload file is absent.
//
// Writers are serialised per digest inside the process (singleflight plus an
// entry lock) and across processes through an advisory lock on <root>/.lock.
// Both files are written with temp file + rename, sidecar first, so a visible
// payload always has its provenance next to it.
package cache
