package story

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompactKeepEntries is the trailing window of story entries retained in the
// progress log after compaction.
const CompactKeepEntries = 5

// entryMarker starts each dated story entry in the progress log. Everything
// before the first marker is the durable "patterns" preamble.
const entryMarker = "\n## "

// splitProgress splits raw progress text into the preamble and the ordered
// list of dated entries (each entry includes its "## ..." heading).
func splitProgress(raw string) (preamble string, entries []string) {
	// Normalize so a leading entry is found even at offset zero.
	text := "\n" + raw
	idx := strings.Index(text, entryMarker)
	if idx < 0 {
		return raw, nil
	}
	preamble = strings.TrimPrefix(text[:idx], "\n")
	rest := text[idx:]
	for len(rest) > 0 {
		next := strings.Index(rest[1:], entryMarker)
		if next < 0 {
			entries = append(entries, rest)
			break
		}
		entries = append(entries, rest[:next+1])
		rest = rest[next+1:]
	}
	return preamble, entries
}

// CompactProgressLog bounds the progress log read by downstream agents.
// When more than CompactKeepEntries story entries have accumulated, all but
// the trailing window move to the archive file. The preamble stays in place,
// and concatenating archive + retained entries reproduces the original log.
func (s *Store) CompactProgressLog() error {
	raw, err := os.ReadFile(s.ProgressPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read progress log: %w", err)
	}

	preamble, entries := splitProgress(string(raw))
	if len(entries) <= CompactKeepEntries {
		return nil
	}

	cut := len(entries) - CompactKeepEntries
	moved := entries[:cut]
	kept := entries[cut:]

	archivePath := filepath.Join(s.dir, ProgressArchiveFileName)
	f, err := os.OpenFile(archivePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open progress archive: %w", err)
	}
	for _, e := range moved {
		if _, err := f.WriteString(e); err != nil {
			f.Close()
			return fmt.Errorf("append progress archive: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close progress archive: %w", err)
	}

	var b strings.Builder
	b.WriteString(preamble)
	for _, e := range kept {
		b.WriteString(e)
	}
	return WriteAtomic(s.ProgressPath(), []byte(b.String()))
}
