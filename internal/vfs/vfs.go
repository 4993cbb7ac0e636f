// Package vfs is the in-memory file tree a generated project lives in.
package vfs

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// Node is the serialized form of one entry.
type Node struct {
	Type    NodeType `json:"type"`
	Content string   `json:"content,omitempty"`
}

// Snapshot maps absolute paths to their nodes. The root is implicit.
type Snapshot map[string]Node

var (
	ErrNotFound    = errors.New("no such file or directory")
	ErrExists      = errors.New("file already exists")
	ErrNotDir      = errors.New("not a directory")
	ErrIsDir       = errors.New("is a directory")
	ErrInvalidPath = errors.New("invalid path")
	ErrNoMatch     = errors.New("text not found")
	ErrLineRange   = errors.New("line out of range")
	ErrNoHistory   = errors.New("no edit history")
)

const root = "/"

type entry struct {
	typ     NodeType
	content string
}

type FileSystem struct {
	mu      sync.RWMutex
	entries map[string]*entry
	history map[string][]string
}

func New() *FileSystem {
	return &FileSystem{
		entries: map[string]*entry{root: {typ: TypeDirectory}},
		history: make(map[string][]string),
	}
}

// FromSnapshot rebuilds a tree. Parents missing from the snapshot are created.
func FromSnapshot(snap Snapshot) (*FileSystem, error) {
	fs := New()
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		node := snap[p]
		var err error
		switch node.Type {
		case TypeDirectory:
			err = fs.CreateDirectory(p)
			if errors.Is(err, ErrExists) {
				err = nil
			}
		case TypeFile, "":
			err = fs.CreateFile(p, node.Content)
		default:
			err = fmt.Errorf("%w: unknown node type %q at %s", ErrInvalidPath, node.Type, p)
		}
		if err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// Normalize returns the absolute, cleaned form of p. ".." never escapes the root.
func Normalize(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	return path.Clean(root + p)
}

func (fs *FileSystem) CreateFile(p, content string) error {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if p == root {
		return fmt.Errorf("%w: %s", ErrIsDir, p)
	}
	if _, ok := fs.entries[p]; ok {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}
	if err := fs.ensureParents(p); err != nil {
		return err
	}
	fs.entries[p] = &entry{typ: TypeFile, content: content}
	delete(fs.history, p)
	return nil
}

func (fs *FileSystem) CreateDirectory(p string) error {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.entries[p]; ok {
		return fmt.Errorf("%w: %s", ErrExists, p)
	}
	if err := fs.ensureParents(p); err != nil {
		return err
	}
	fs.entries[p] = &entry{typ: TypeDirectory}
	return nil
}

func (fs *FileSystem) ReadFile(p string) (string, error) {
	p = Normalize(p)
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	e, err := fs.file(p)
	if err != nil {
		return "", err
	}
	return e.content, nil
}

// WriteFile replaces the content of p, creating it and its parents when missing.
func (fs *FileSystem) WriteFile(p, content string) error {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if e, ok := fs.entries[p]; ok {
		if e.typ != TypeFile {
			return fmt.Errorf("%w: %s", ErrIsDir, p)
		}
		fs.remember(p, e.content)
		e.content = content
		return nil
	}
	if err := fs.ensureParents(p); err != nil {
		return err
	}
	fs.entries[p] = &entry{typ: TypeFile, content: content}
	return nil
}

func (fs *FileSystem) Exists(p string) bool {
	p = Normalize(p)
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.entries[p]
	return ok
}

func (fs *FileSystem) Stat(p string) (Node, bool) {
	p = Normalize(p)
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	e, ok := fs.entries[p]
	if !ok {
		return Node{}, false
	}
	return Node{Type: e.typ, Content: e.content}, true
}

// List returns the direct children of dir, sorted.
func (fs *FileSystem) List(dir string) ([]string, error) {
	dir = Normalize(dir)
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	e, ok := fs.entries[dir]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}
	if e.typ != TypeDirectory {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, dir)
	}
	return fs.children(dir), nil
}

// Rename moves a file or a directory subtree, creating missing parents of newPath.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	oldPath, newPath = Normalize(oldPath), Normalize(newPath)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if oldPath == root || newPath == root {
		return fmt.Errorf("%w: cannot rename the root directory", ErrInvalidPath)
	}
	if _, ok := fs.entries[oldPath]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, oldPath)
	}
	if oldPath == newPath {
		return nil
	}
	if _, ok := fs.entries[newPath]; ok {
		return fmt.Errorf("%w: %s", ErrExists, newPath)
	}
	if isWithin(newPath, oldPath) {
		return fmt.Errorf("%w: cannot move %s into itself", ErrInvalidPath, oldPath)
	}
	if err := fs.ensureParents(newPath); err != nil {
		return err
	}
	for p, e := range fs.entries {
		if p != oldPath && !isWithin(p, oldPath) {
			continue
		}
		moved := newPath + strings.TrimPrefix(p, oldPath)
		delete(fs.entries, p)
		fs.entries[moved] = e
		if h, ok := fs.history[p]; ok {
			delete(fs.history, p)
			fs.history[moved] = h
		}
	}
	return nil
}

// Delete removes p and, for directories, everything below it.
func (fs *FileSystem) Delete(p string) error {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if p == root {
		return fmt.Errorf("%w: cannot delete the root directory", ErrInvalidPath)
	}
	if _, ok := fs.entries[p]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	for candidate := range fs.entries {
		if candidate == p || isWithin(candidate, p) {
			delete(fs.entries, candidate)
			delete(fs.history, candidate)
		}
	}
	return nil
}

// ReplaceInFile replaces every occurrence of oldStr and returns how many were replaced.
func (fs *FileSystem) ReplaceInFile(p, oldStr, newStr string) (int, error) {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.file(p)
	if err != nil {
		return 0, err
	}
	if oldStr == "" {
		return 0, fmt.Errorf("%w: old_str must not be empty", ErrNoMatch)
	}
	count := strings.Count(e.content, oldStr)
	if count == 0 {
		return 0, fmt.Errorf("%w: %q in %s", ErrNoMatch, oldStr, p)
	}
	fs.remember(p, e.content)
	e.content = strings.ReplaceAll(e.content, oldStr, newStr)
	return count, nil
}

// InsertInFile inserts text after line (1-based); line 0 inserts before the first line.
func (fs *FileSystem) InsertInFile(p string, line int, text string) error {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.file(p)
	if err != nil {
		return err
	}
	lines := strings.Split(e.content, "\n")
	if e.content == "" {
		lines = nil
	}
	if line < 0 || line > len(lines) {
		return fmt.Errorf("%w: %d (file has %d lines)", ErrLineRange, line, len(lines))
	}
	inserted := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+len(inserted))
	out = append(out, lines[:line]...)
	out = append(out, inserted...)
	out = append(out, lines[line:]...)
	fs.remember(p, e.content)
	e.content = strings.Join(out, "\n")
	return nil
}

// UndoEdit restores the content p had before its most recent edit.
func (fs *FileSystem) UndoEdit(p string) (string, error) {
	p = Normalize(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.file(p)
	if err != nil {
		return "", err
	}
	stack := fs.history[p]
	if len(stack) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoHistory, p)
	}
	e.content = stack[len(stack)-1]
	if len(stack) == 1 {
		delete(fs.history, p)
	} else {
		fs.history[p] = stack[:len(stack)-1]
	}
	return e.content, nil
}

// Snapshot returns every entry except the root.
func (fs *FileSystem) Snapshot() Snapshot {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make(Snapshot, len(fs.entries))
	for p, e := range fs.entries {
		if p == root {
			continue
		}
		out[p] = Node{Type: e.typ, Content: e.content}
	}
	return out
}

// Files returns the paths of all regular files, sorted.
func (fs *FileSystem) Files() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	out := make([]string, 0, len(fs.entries))
	for p, e := range fs.entries {
		if e.typ == TypeFile {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (fs *FileSystem) file(p string) (*entry, error) {
	e, ok := fs.entries[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if e.typ != TypeFile {
		return nil, fmt.Errorf("%w: %s", ErrIsDir, p)
	}
	return e, nil
}

func (fs *FileSystem) ensureParents(p string) error {
	var missing []string
	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		e, ok := fs.entries[dir]
		if ok {
			if e.typ != TypeDirectory {
				return fmt.Errorf("%w: %s", ErrNotDir, dir)
			}
			break
		}
		missing = append(missing, dir)
	}
	for _, dir := range missing {
		fs.entries[dir] = &entry{typ: TypeDirectory}
	}
	return nil
}

const maxHistory = 20

func (fs *FileSystem) remember(p, content string) {
	stack := append(fs.history[p], content)
	if len(stack) > maxHistory {
		stack = stack[len(stack)-maxHistory:]
	}
	fs.history[p] = stack
}

func (fs *FileSystem) children(dir string) []string {
	var out []string
	for p := range fs.entries {
		if p != root && path.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func isWithin(p, dir string) bool {
	if dir == root {
		return p != root
	}
	return strings.HasPrefix(p, dir+"/")
}
