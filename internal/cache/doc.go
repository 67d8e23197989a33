// Package cache implements the filesystem-backed key/value cache. Every key is
// hashed (MD5, hex) and mapped onto CacheDirectory/<h>/<hh>/<hash><ext>; the
// file body is the raw value and the file's mtime is the entry age. There is
// no in-memory index: each call stats, reads, writes or unlinks the file
// directly, so the filesystem is the only source of truth.
//
// Two API layers are exposed. Stat/Load/Store/Remove/ModTime return *Error
// values tagged with a kind sentinel for callers that need to branch on the
// failure. Exists/Get/Set/Delete/Age collapse those errors into bool/zero
// results and only log them.
package cache
