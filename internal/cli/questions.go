package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// AskTitle prompts for the book title on out and reads the answer from in.
// An empty answer or a closed input keeps def.
func AskTitle(in io.Reader, out io.Writer, def string) string {
	fmt.Fprintf(out, "Book title [%s]: ", def)
	s, _ := bufio.NewReader(in).ReadString('\n')
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
