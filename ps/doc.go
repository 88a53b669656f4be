// Package ps provides the persistence layer for KivDB.
//
// A store is a single append-oriented data file: an 8-byte header (magic
// bytes followed by a big-endian format version) and a sequence of
// length-prefixed records. The file is accessed through go-billy, so the
// same code runs on disk and in memory.
//
// # Memory Persistence
//
// For testing or ephemeral stores:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For persistent storage, optionally with checkpoint history:
//
//	persistence, err := ps.NewFilePersistence("/path/to/data.kiv", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # History
//
// When history is enabled a private Git repository is kept next to the data
// file, in <name>.history.
// Checkpoint commits the current file, Snapshot tags a checkpoint and
// Recover or Restore rewrite the file from one:
//
//	txn, _ := persistence.Checkpoint(identity, "before migration")
//	persistence.Snapshot("v1", &txn)
//	persistence.Recover("v1")
//
// Checkpoints can be mirrored to any Git remote with AddRemote and Push, and
// brought back with Fetch followed by Recover.
//
// A file-backed data file is locked while open; a second open fails with
// ErrLocked.
package ps
