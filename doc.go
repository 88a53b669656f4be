// Package KivDB provides an embedded key-value store driven by a tiny
// query language.
//
// A store is one data file of length-prefixed records. Statements in KivQL
// are compiled into typed operations and executed against it; every
// statement is serialized through a single engine.
//
// # Quick Start
//
// Create an in-memory store:
//
//	instance, _ := KivDB.OpenMemory()
//	engine := instance.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Execute(`SET "name" TO "Alice"`)
//	result, _ := engine.Execute(`GET "name"`)
//	result.Display()
//
// # KivQL
//
// Keywords are case-insensitive, strings use single or double quotes:
//   - SET "key" TO "value"
//   - GET "key"
//   - DELETE "key"
//
// # History
//
// File stores opened with history keep a Git repository next to the data
// file. Engine.Checkpoint records the current state and Engine.Recover
// brings a named snapshot back.
package KivDB
