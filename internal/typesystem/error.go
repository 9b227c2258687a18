package typesystem

import "fmt"

// SyntaxError reports a malformed type descriptor.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("type %q: %s at offset %d", e.Input, e.Msg, e.Offset)
}
