// Package source defines the identifiers and edit records shared by every
// layer of grove.
package source

import "fmt"

// FileID identifies one source file within a root. IDs are assigned by the
// caller, stay stable for the life of a file, and are never reused for a
// different file.
type FileID uint32

func (id FileID) String() string {
	return fmt.Sprintf("FileID(%d)", uint32(id))
}

// File pairs a FileID with its full text.
type File struct {
	ID   FileID
	Text string
}

// Change is one record of an edit batch. A nil Text deletes the file;
// a non-nil Text sets (or creates) it.
type Change struct {
	File FileID
	Text *string
}

// SetText returns a Change that sets the text of id.
func SetText(id FileID, text string) Change {
	return Change{File: id, Text: &text}
}

// Remove returns a Change that deletes id.
func Remove(id FileID) Change {
	return Change{File: id}
}

// IsRemoval reports whether c deletes its file.
func (c Change) IsRemoval() bool {
	return c.Text == nil
}
