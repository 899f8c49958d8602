// Package workid implements the identifier codec shared by every component
// that names a work: canonical zero-padded string forms, permissive parsing
// back into (family, number) pairs, and the shard key used to group asset
// directories on disk.
//
// Identifiers are a family prefix (uppercase letters, "RJ" and "VJ" in the
// default configuration) followed by a zero-padded decimal number. Numbers
// below 1,000,000 render at width 6, numbers up to 9,999,999 at width 8, and
// anything larger falls back to an unpadded form. Parsing never fails: input
// that does not match a registered family yields the zero ID.
package workid
