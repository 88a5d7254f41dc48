package concat

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// WriteList writes an ffmpeg concat-demuxer list naming paths in exactly the
// given order. Paths are made absolute and single quotes are escaped.
func WriteList(w io.Writer, paths []string) error {
	buf := bufio.NewWriter(w)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if strings.ContainsAny(abs, "\n\r") {
			return fmt.Errorf("path %q contains a line break", abs)
		}
		if _, err := fmt.Fprintf(buf, "file '%s'\n", escapeQuotes(abs)); err != nil {
			return err
		}
	}
	return buf.Flush()
}

func escapeQuotes(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
