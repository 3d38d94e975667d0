// Package importer bulk-loads files from a directory into a record store.
//
// Every regular file whose name is a valid record name becomes one record
// with the file's bytes as content. Files are written concurrently on a
// bounded worker pool; each write is retried with exponential backoff and
// progress is reported every N records.
//
// Basic usage:
//
//	imp, err := importer.New(store, importer.WithPoolSize(4))
//	if err != nil {
//	    return err
//	}
//	defer imp.Release()
//
//	summary, err := imp.ImportDir(ctx, "./seed")
package importer
