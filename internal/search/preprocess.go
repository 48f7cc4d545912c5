package search

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// FlattenCorpus normalizes a tenant's Markdown corpus for indexing: table
// rows become standalone fact paragraphs (cells joined with a space),
// heading markers are stripped, and runs of blank lines collapse to one
// paragraph break. If the input contains no tables the original bytes are
// returned untouched so hand-written prose keeps its paragraph structure.
func FlattenCorpus(r io.Reader) ([]byte, error) {
	orig, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	sc := bufio.NewScanner(bytes.NewReader(orig))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	wroteBlank := true // start true to avoid a leading blank
	sawTable := false

	writeFact := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		b.WriteString(s)
		b.WriteString("\n\n")
		wroteBlank = true
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if !wroteBlank {
				b.WriteByte('\n')
				wroteBlank = true
			}
			continue
		}

		// table row: "| ... |"
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			sawTable = true
			raw := strings.Trim(line, "|")
			cols := strings.Split(raw, "|")

			allSep := true
			cleaned := make([]string, 0, len(cols))
			for _, c := range cols {
				cell := strings.TrimSpace(c)
				if cell != "" {
					cleaned = append(cleaned, cell)
				}
				tmp := strings.ReplaceAll(cell, ":", "")
				tmp = strings.ReplaceAll(tmp, "-", "")
				if strings.TrimSpace(tmp) != "" {
					allSep = false
				}
			}
			if allSep || len(cleaned) == 0 {
				continue
			}
			writeFact(strings.Join(cleaned, " "))
			continue
		}

		// heading → keep the text, drop the markers
		if strings.HasPrefix(line, "#") {
			writeFact(strings.TrimLeft(line, "# "))
			continue
		}

		wroteBlank = false
		writeFact(line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !sawTable {
		return orig, nil
	}

	out := strings.TrimRight(b.String(), "\n") + "\n"
	return []byte(out), nil
}
