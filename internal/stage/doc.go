// Package stage defines the batch stages (materialize, createdb, search,
// diamond) as Handlers for the shared dispatch pool.
//
// A Handler plans one job per category, executes a single job, and names the
// completion check used to skip finished work. Planning problems confined to
// one category (an unreadable metadata file, say) come back as pre-failed
// results so the rest of the batch still runs.
package stage
