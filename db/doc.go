// Package db provides the statement engine for KivDB.
//
// The Engine type is the main entry point. It compiles a KivQL statement,
// runs it against the store and returns a typed result:
//
//	engine := db.NewEngine(persistence, identity, db.WithLogger(logger))
//	result, err := engine.Execute(`SET "greeting" TO "hello"`)
//	if err != nil {
//	    log.Fatal(db.DescribeError(err))
//	}
//	result.Display()
//
// # Result Types
//
//   - SetResult: returned by SET, reports whether the key was created
//   - DeleteResult: returned by DELETE, also for missing keys
//   - GetResult: returned by GET, Value is nil for missing keys
//
// Every result reports the time spent in storage. Envelope converts a
// result, and DescribeError an error, into the JSON form used by the
// servers and the C bindings.
//
// # Maintenance
//
// The engine also exposes checkpoints (Checkpoint, History, Snapshot,
// Recover), backups to local paths or S3 (Backup, RestoreBackup, with zstd
// for .zst targets) and Stats. All of them hold the same lock as Execute.
package db
