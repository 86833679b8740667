package pipeline

import (
	"errors"
	"fmt"
)

// ErrMisaligned reports that a group changed between the percentile read and
// write passes.
var ErrMisaligned = errors.New("percentile rows misaligned")

// ErrEmptyRegion reports a raw row whose stop does not exceed its start.
var ErrEmptyRegion = errors.New("empty bin region")

// MissingTotalError is returned when a raw row names a file with no total
// read count.
type MissingTotalError struct {
	FileName string
}

func (e *MissingTotalError) Error() string {
	return fmt.Sprintf("no total read count for file %q", e.FileName)
}

// ZeroTotalError is returned when a file's total read count is zero.
type ZeroTotalError struct {
	FileName string
}

func (e *ZeroTotalError) Error() string {
	return fmt.Sprintf("total read count for file %q is zero", e.FileName)
}

// MisalignedError pinpoints the first position where the write pass saw a
// different bin than the read pass.
type MisalignedError struct {
	CellType string
	FileName string
	Position int
	Want     uint32
	Got      uint32
}

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("%s: %s/%s position %d: expected bin %d, found bin %d",
		ErrMisaligned, e.CellType, e.FileName, e.Position, e.Want, e.Got)
}

func (e *MisalignedError) Is(target error) bool { return target == ErrMisaligned }
