package page

import (
	"golang.org/x/text/unicode/bidi"
)

// Text directions
const (
	LTR = "ltr"
	RTL = "rtl"
)

// DetectDirection returns the direction of the first strongly typed character of text,
// or "" when text has none.
func DetectDirection(text string) string {
	for _, r := range text {
		props, _ := bidi.LookupRune(r)
		switch props.Class() {
		case bidi.L:
			return LTR
		case bidi.R, bidi.AL:
			return RTL
		}
	}
	return ""
}
