// Package store provides storage and pub/sub functionality for page
// customization.
//
// This package is internal to the funnel server and persists the operator's
// edits to the page copy, offer images and checkout URLs. It implements a
// publish-subscribe pattern so open admin previews can reload when the
// content changes.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [SQLiteStore]: SQLite-backed implementation for persistence across restarts
//   - [Customization]: The editable content document
//
// Stores are designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the system).
package store
