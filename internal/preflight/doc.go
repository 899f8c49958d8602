// Package preflight provides readiness checks for the directories, disk
// headroom, and provider endpoint a crawl depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before starting and surfaces failures
//     as warnings. A crawl that cannot persist its own progress would
//     otherwise discover that hours into the enumeration.
//   - The CLI "trawl status" command uses the individual check functions
//     and the storage snapshot from ProbeStorage to display health.
package preflight
