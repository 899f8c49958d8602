// Package dlsite binds the external record provider: one JSON lookup per
// work identifier against the product endpoint. Absent identifiers are the
// normal case across most of the numeric domain and surface as
// services.ErrNotFound; everything else that goes wrong is transient and
// retried on a later run.
package dlsite
