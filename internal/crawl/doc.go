// Package crawl drives the enumeration pipeline: it walks every configured
// identifier, asks the record provider about the ones the catalog does not
// know, appends accepted works, and mirrors their cover images. Progress is
// checkpointed ahead of each cadence window so an interrupted run resumes
// where it stopped, and every step is safe to repeat.
package crawl
