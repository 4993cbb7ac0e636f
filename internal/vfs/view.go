package vfs

import (
	"fmt"
	"path"
	"strings"
)

// View renders a file with 1-based line numbers, or lists a directory.
// start and end select an inclusive line range; end of -1 reads to EOF and
// start of 0 means the whole file.
func (fs *FileSystem) View(p string, start, end int) (string, error) {
	p = Normalize(p)
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	e, ok := fs.entries[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if e.typ == TypeDirectory {
		return fs.viewDir(p), nil
	}
	if e.content == "" {
		return "(empty file)", nil
	}
	lines := strings.Split(e.content, "\n")
	from, to := 1, len(lines)
	if start > 0 {
		from = start
		if end != -1 && end != 0 {
			to = end
		}
	}
	if from > len(lines) || to < from {
		return "", fmt.Errorf("%w: [%d, %d] (file has %d lines)", ErrLineRange, start, end, len(lines))
	}
	if to > len(lines) {
		to = len(lines)
	}
	var b strings.Builder
	for i := from; i <= to; i++ {
		fmt.Fprintf(&b, "%6d\t%s", i, lines[i-1])
		if i < to {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func (fs *FileSystem) viewDir(dir string) string {
	children := fs.children(dir)
	if len(children) == 0 {
		return "(empty directory)"
	}
	var b strings.Builder
	for i, child := range children {
		if i > 0 {
			b.WriteByte('\n')
		}
		if fs.entries[child].typ == TypeDirectory {
			b.WriteString("[DIR] ")
			b.WriteString(path.Base(child) + "/")
			continue
		}
		b.WriteString("[FILE] ")
		b.WriteString(path.Base(child))
	}
	return b.String()
}
