// Package assets mirrors each work's main image under a sharded directory
// tree. Path existence is the sole idempotence signal: a file already at the
// target path is never re-fetched or re-validated, and a failed download
// leaves nothing behind, so the next run simply retries it.
package assets
