// Package core provides core types used throughout KivDB.
//
// The package defines the persisted record type, DataEntry, and Identity,
// the author attached to history checkpoints and authenticated sessions.
//
// # Identity
//
// Identity identifies the author of checkpoints (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Data Entries
//
// Every record in a KivDB data file is a DataEntry. Only one entry type
// exists today, DataEntryType; the type byte is kept on disk so that later
// record kinds can be added without changing the file version.
//
//	entry := core.NewDataEntry("name", "alice")
package core
