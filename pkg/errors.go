package emulator

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrCorruptResume is returned when the last line of an existing record
// stream cannot be parsed. The resume point returned alongside it is zero.
type ErrCorruptResume struct {
	Filename string
	Line     string
	Err      error
}

func (e *ErrCorruptResume) Error() string {
	return fmt.Sprintf("cannot resume record stream %q from last line %q: %v", e.Filename, e.Line, e.Err)
}

func (e *ErrCorruptResume) Unwrap() error {
	return e.Err
}

// ErrParseHit represents a malformed line in a hits input file.
type ErrParseHit struct {
	Filename string
	LineNum  int
	Err      error
}

func (e *ErrParseHit) Error() string {
	return fmt.Sprintf("error parsing %q line %d: %v", e.Filename, e.LineNum, e.Err)
}

func (e *ErrParseHit) Unwrap() error {
	return e.Err
}
