package ctlplane

import "strings"

// StatusLine is the fixed 12-field line emitted just before ok/error in
// plain mode (spec §6.1) and carried as the "status" member of a JSON
// response (spec §6.2). Field order is fixed by the wire format, not by
// this struct's layout, so StatusLine always round-trips through String
// and ParseStatusLine rather than being marshaled directly.
type StatusLine struct {
	KeyboardLock string // field 1
	Mode3270     string // field 2
	Formatted    string // field 3
	Protected    string // field 4
	Connection   string // field 5
	EmulatorMode string // field 6
	Model        string // field 7
	Rows         string // field 8
	Columns      string // field 9
	CursorRow    string // field 10
	CursorCol    string // field 11
	WindowID     string // field 12
}

// String renders the 12 fields space-separated, the wire form of the
// status line.
func (s StatusLine) String() string {
	fields := []string{
		s.KeyboardLock,
		s.Mode3270,
		s.Formatted,
		s.Protected,
		s.Connection,
		s.EmulatorMode,
		s.Model,
		s.Rows,
		s.Columns,
		s.CursorRow,
		s.CursorCol,
		s.WindowID,
	}
	return strings.Join(fields, " ")
}

// ParseStatusLine splits a wire status line back into its 12 fields. It
// does not validate field contents — callers that care about a specific
// field (e.g. the Tcl binding's Rows/Cols accessors) read the struct
// field directly.
func ParseStatusLine(line string) StatusLine {
	fields := strings.Fields(line)
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return StatusLine{
		KeyboardLock:        get(0),
		Mode3270:            get(1),
		Formatted:           get(2),
		Protected:           get(3),
		Connection:          get(4),
		EmulatorMode:        get(5),
		Model:               get(6),
		Rows:                get(7),
		Columns:             get(8),
		CursorRow:           get(9),
		CursorCol:           get(10),
		WindowID:            get(11),
	}
}
