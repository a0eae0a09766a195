// Package checkpoint records which posts have been fully processed so an
// interrupted or repeated run skips them.
//
// Two stores are available. JSONStore writes data/<mineral>/progress.json
// next to the dataset, atomically. SQLiteStore keeps all minerals in a single
// database and only inserts the IDs marked since the last save.
//
// A post is marked only after its comments are collected, and callers save
// the dataset before the progress record, so a processed ID always has its
// data on disk.
package checkpoint
