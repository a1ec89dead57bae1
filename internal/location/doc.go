// Package location provides the spatial hierarchy devices are placed in.
//
// A Location is a named place (house, floor, room) with an optional parent
// location, a list of synonyms used for voice and text matching, and free
// per-location settings. Locations are stored in SQLite and cached by the
// Registry, which answers id lookups for devices.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines
// (SQLite WAL mode + connection pooling). Registry guards its cache with
// a read/write mutex.
package location
