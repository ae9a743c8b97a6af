// Package store implements a durable key-value store of strings.
//
// All records live in memory. A store is a directory with a single
// file named "data" which is read in full by Open and re-written in
// full by Save and Flush.
//
// # Data File
//
// One record per line, key and value encoded by package codec:
//
//	<escaped key>||<escaped value>\n
//
// Lines that can't be decoded are logged and skipped, unless
// Options.Strict is set. The file is replaced atomically: we write
// a temporary file in the same directory and rename it over "data".
//
// # Basic Usage
//
//	s, err := store.Open("./db", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = s.Insert("name", "John Doe")
//	v, ok := s.Get("name")
//	_ = s.Remove("name")
//	// persist changes, s can't be modified after Flush
//	err = s.Flush()
//
// # Thread Safety
//
// Store is not safe for concurrent use. Multiple processes using
// the same directory will over-write each other's changes.
package store
