// Package sources manages per-user content source configuration and the
// collectors that gather content at job start.
//
// Three source kinds exist: Substack publications, RSS/Atom feeds, and news
// topics summarized via an external API. A generation job reads the enabled
// sources as a Snapshot, runs all collectors concurrently, and merges the
// results in a fixed kind order. Individual source or kind failures degrade
// the result rather than failing it; only an entirely empty result is fatal.
package sources
