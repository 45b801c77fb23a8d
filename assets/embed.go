// Package assets embeds the default word lists so the service can run
// without any external dictionary configured.
package assets

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"strings"
)

//go:embed vi.txt en.txt blacklist_vi.txt blacklist_en.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLines(f)
}

// ParseLines reads one entry per line, trimming whitespace and skipping
// blank lines and "#" comments.
func ParseLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// WordList returns the embedded vocabulary for a language code ("vi", "en").
func WordList(code string) ([]string, error) {
	return readLines(fmt.Sprintf("%s.txt", code))
}

// Blacklist returns the embedded blacklist for a language code.
func Blacklist(code string) ([]string, error) {
	return readLines(fmt.Sprintf("blacklist_%s.txt", code))
}
