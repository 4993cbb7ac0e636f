// Package envfile loads KEY=value pairs from a dotenv file into the process
// environment without overriding variables that are already set.
package envfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PathEnv names a dotenv file to load instead of searching for one.
const PathEnv = "UIGEN_ENV_PATH"

type Result struct {
	Path   string
	Loaded bool
	Keys   int
	Err    error
}

// Load applies PathEnv if set, otherwise the nearest .env at or above the
// working directory. A missing file is not an error.
func Load() Result {
	if path := strings.TrimSpace(os.Getenv(PathEnv)); path != "" {
		return LoadPath(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return Result{Err: err}
	}
	if path := FindUpwards(cwd, ".env"); path != "" {
		return LoadPath(path)
	}
	return Result{}
}

func LoadPath(path string) Result {
	f, err := os.Open(path)
	if err != nil {
		return Result{Path: path, Err: err}
	}
	defer f.Close()

	pairs, err := Parse(f)
	res := Result{Path: path, Loaded: true, Err: err}
	for _, kv := range pairs {
		if _, set := os.LookupEnv(kv[0]); set {
			continue
		}
		if err := os.Setenv(kv[0], kv[1]); err != nil {
			res.Err = fmt.Errorf("set %s: %w", kv[0], err)
			return res
		}
		res.Keys++
	}
	return res
}

// Parse returns the key/value pairs of r in file order. Blank lines,
// comments and lines without a key are skipped.
func Parse(r io.Reader) ([][2]string, error) {
	var pairs [][2]string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, raw, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			continue
		}
		pairs = append(pairs, [2]string{key, unquote(strings.TrimSpace(raw))})
	}
	return pairs, sc.Err()
}

// unquote strips one pair of matching quotes. Unquoted values lose a
// trailing " # comment".
func unquote(v string) string {
	if n := len(v); n >= 2 && (v[0] == '"' || v[0] == '\'') && v[n-1] == v[0] {
		return v[1 : n-1]
	}
	if i := strings.Index(v, " #"); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}

// FindUpwards returns the first path named filename in start or one of its
// parents, or "" when there is none.
func FindUpwards(start, filename string) string {
	for dir := start; ; {
		candidate := filepath.Join(dir, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
