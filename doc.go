// Package chrisql opens a chrisql database: a directory of named records
// behind a storage.RecordStore, an optional read cache, a bulk importer and
// the interactive loop.
//
//	db, err := chrisql.NewDatabase("./data", chrisql.WithCacheSize(16<<20))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.Store().Write(ctx, "users", []byte("alice,bob"))
package chrisql
