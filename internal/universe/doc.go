// Package universe declares the enumeration universe: per family, the ordered
// disjoint numeric intervals that make up the identifier space, and a lazy
// forward-only walk over all of them.
//
// The walk is deterministic and restartable. Given the identifier a previous
// run checkpointed, Walk resumes at that identifier inclusive; a cursor that
// falls in a gap between intervals moves forward to the next interval, and a
// cursor past a family's last interval moves on to the next family. Resuming
// is therefore always equivalent to dropping a prefix of the full sequence.
package universe
