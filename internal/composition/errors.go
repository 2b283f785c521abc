package composition

import "fmt"

// ValidationError reports a descriptor field that breaks its invariant.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid composition %s (%v): %s", e.Field, e.Value, e.Reason)
}

// SerializationError reports a value that cannot be carried by the wire
// format, or a document that cannot be decoded into a descriptor.
type SerializationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Path == "" {
		return "serialization: " + msg
	}
	return fmt.Sprintf("serialization at %s: %s", e.Path, msg)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
