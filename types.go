package grove

import (
	"github.com/jward/grove/internal/incr"
	"github.com/jward/grove/internal/source"
)

// Public aliases for the identifier and edit types shared with the internal
// packages.

type FileID = source.FileID
type File = source.File
type Change = source.Change
type Revision = incr.Revision

// ErrCanceled is returned by multi-file reads on a writable root when an edit
// batch was committed while the read ran.
var ErrCanceled = incr.ErrCanceled

// SetText returns a Change that sets (or creates) the text of id.
func SetText(id FileID, text string) Change {
	return source.SetText(id, text)
}

// Remove returns a Change that deletes id.
func Remove(id FileID) Change {
	return source.Remove(id)
}
