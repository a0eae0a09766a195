// Package storage keeps the per-mineral dataset files.
//
// Each mineral gets a directory under the data directory:
//
//	data/<mineral>/posts.json     posts in first-seen order
//	data/<mineral>/comments.json  flattened comments in first-seen order
//	data/<mineral>/summary.json   totals written at the end of a run
//
// Records are added once and never replaced. Files are written through a
// temporary file that is synced and renamed, so an interrupted run leaves
// the previous version intact.
//
// Usage:
//
//	manager, err := storage.NewManager("data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ds, err := manager.Open("quartz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if ds.AddPost(post) {
//	    added := ds.AddComments(comments)
//	    log.Printf("%d new comments", added)
//	}
//	if err := ds.Save(); err != nil {
//	    log.Fatal(err)
//	}
package storage
