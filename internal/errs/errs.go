// Package errs defines the error kinds reported while parsing and generating a book.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an Error
type Kind string

const (
	KindParsing        Kind = "parsing"
	KindFileNotFound   Kind = "file_not_found"
	KindFileOutOfScope Kind = "file_out_of_scope"
	KindConfiguration  Kind = "configuration"
	KindTemplate       Kind = "template"
	KindPlugin         Kind = "plugin"
	KindOutput         Kind = "output"
	KindEbook          Kind = "ebook"
)

// Error carries the kind of failure together with the file, root and pipeline stage involved
type Error struct {
	Kind    Kind
	Message string
	File    string
	Root    string
	Stage   string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same kind so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.File == ""
}

// WithStage returns a copy of e annotated with the pipeline stage
func (e *Error) WithStage(stage string) *Error {
	c := *e
	c.Stage = stage
	return &c
}

// IsKind reports whether any error in err's chain is an *Error of kind k
func IsKind(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if errors.As(err, &e) {
			if e.Kind == k {
				return true
			}
			err = e.Err
			continue
		}
		return false
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Parsing reports malformed structural input
func Parsing(file, message string, cause error) *Error {
	return &Error{Kind: KindParsing, File: file, Message: message, Err: cause}
}

// FileNotFound reports a missing or ignored required file
func FileNotFound(file string) *Error {
	return &Error{
		Kind:    KindFileNotFound,
		File:    file,
		Message: fmt.Sprintf("No %q file (or is ignored)", file),
	}
}

// OutOfScope reports a path that resolves outside of the book root
func OutOfScope(file, root string) *Error {
	return &Error{
		Kind:    KindFileOutOfScope,
		File:    file,
		Root:    root,
		Message: fmt.Sprintf("%q not in %q", file, root),
	}
}

// Configuration reports an invalid book configuration
func Configuration(file, message string, cause error) *Error {
	return &Error{Kind: KindConfiguration, File: file, Message: message, Err: cause}
}

// Template reports a failed template compilation or render; file defaults to "<inline>"
func Template(file string, cause error) *Error {
	if file == "" {
		file = "<inline>"
	}
	return &Error{
		Kind:    KindTemplate,
		File:    file,
		Message: fmt.Sprintf("Error compiling template %q", file),
		Err:     cause,
	}
}

// Plugin reports a failure raised by a plugin
func Plugin(name, message string, cause error) *Error {
	return &Error{Kind: KindPlugin, File: name, Message: fmt.Sprintf("plugin %q: %s", name, message), Err: cause}
}

// Output reports a failure while writing generated files
func Output(file, message string, cause error) *Error {
	return &Error{Kind: KindOutput, File: file, Message: message, Err: cause}
}

// Ebook reports a failure while packaging an ebook
func Ebook(message string, cause error) *Error {
	return &Error{Kind: KindEbook, Message: message, Err: cause}
}
