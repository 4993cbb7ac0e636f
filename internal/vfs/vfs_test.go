package vfs

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"App.jsx":              "/App.jsx",
		"/components//Button":  "/components/Button",
		"/components/":         "/components",
		"/../../etc/passwd":    "/etc/passwd",
		"./a/./b/../c.js":      "/a/c.js",
		"":                     "/",
		"\\windows\\style.jsx": "/windows/style.jsx",
	}
	for input, want := range cases {
		assert.Equal(t, want, Normalize(input), "Normalize(%q)", input)
	}
}

func TestCreateFileMakesParents(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/components/ui/Button.jsx", "export default 1"))

	node, ok := fs.Stat("/components/ui")
	require.True(t, ok)
	assert.Equal(t, TypeDirectory, node.Type)

	err := fs.CreateFile("/components/ui/Button.jsx", "again")
	assert.True(t, errors.Is(err, ErrExists))

	err = fs.CreateFile("/components/ui/Button.jsx/inner.js", "x")
	assert.True(t, errors.Is(err, ErrNotDir))
}

func TestReplaceInFileReplacesAll(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/App.jsx", "red red blue"))

	n, err := fs.ReplaceInFile("/App.jsx", "red", "green")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	content, _ := fs.ReadFile("/App.jsx")
	assert.Equal(t, "green green blue", content)

	_, err = fs.ReplaceInFile("/App.jsx", "purple", "x")
	assert.True(t, errors.Is(err, ErrNoMatch))
	_, err = fs.ReplaceInFile("/App.jsx", "", "x")
	assert.True(t, errors.Is(err, ErrNoMatch))
	_, err = fs.ReplaceInFile("/missing.jsx", "a", "b")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInsertInFile(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/a.js", "one\ntwo"))

	require.NoError(t, fs.InsertInFile("/a.js", 0, "zero"))
	require.NoError(t, fs.InsertInFile("/a.js", 3, "three"))
	content, _ := fs.ReadFile("/a.js")
	assert.Equal(t, "zero\none\ntwo\nthree", content)

	err := fs.InsertInFile("/a.js", 9, "nope")
	assert.True(t, errors.Is(err, ErrLineRange))

	require.NoError(t, fs.CreateFile("/empty.js", ""))
	require.NoError(t, fs.InsertInFile("/empty.js", 0, "first"))
	content, _ = fs.ReadFile("/empty.js")
	assert.Equal(t, "first", content)
}

func TestUndoEditWalksHistory(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/a.js", "v1"))
	require.NoError(t, fs.WriteFile("/a.js", "v2"))
	_, err := fs.ReplaceInFile("/a.js", "v2", "v3")
	require.NoError(t, err)

	restored, err := fs.UndoEdit("/a.js")
	require.NoError(t, err)
	assert.Equal(t, "v2", restored)
	restored, err = fs.UndoEdit("/a.js")
	require.NoError(t, err)
	assert.Equal(t, "v1", restored)

	_, err = fs.UndoEdit("/a.js")
	assert.True(t, errors.Is(err, ErrNoHistory))
}

func TestRenameMovesSubtree(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/old/Button.jsx", "button"))
	require.NoError(t, fs.CreateFile("/old/icons/Star.jsx", "star"))
	require.NoError(t, fs.WriteFile("/old/Button.jsx", "button v2"))

	require.NoError(t, fs.Rename("/old", "/src/components"))
	assert.False(t, fs.Exists("/old"))
	assert.False(t, fs.Exists("/old/icons/Star.jsx"))
	content, err := fs.ReadFile("/src/components/icons/Star.jsx")
	require.NoError(t, err)
	assert.Equal(t, "star", content)

	restored, err := fs.UndoEdit("/src/components/Button.jsx")
	require.NoError(t, err)
	assert.Equal(t, "button", restored)

	assert.True(t, errors.Is(fs.Rename("/missing", "/x"), ErrNotFound))
	require.NoError(t, fs.CreateFile("/taken.jsx", ""))
	assert.True(t, errors.Is(fs.Rename("/src/components/Button.jsx", "/taken.jsx"), ErrExists))
	assert.True(t, errors.Is(fs.Rename("/src", "/src/inner"), ErrInvalidPath))
	assert.True(t, errors.Is(fs.Rename("/", "/root"), ErrInvalidPath))
}

func TestRenameSiblingPrefixUntouched(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/app/a.js", "a"))
	require.NoError(t, fs.CreateFile("/app-old/b.js", "b"))
	require.NoError(t, fs.Rename("/app", "/web"))
	assert.True(t, fs.Exists("/app-old/b.js"))
	assert.True(t, fs.Exists("/web/a.js"))
}

func TestDeleteIsRecursive(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/components/a.jsx", "a"))
	require.NoError(t, fs.CreateFile("/components/deep/b.jsx", "b"))
	require.NoError(t, fs.CreateFile("/App.jsx", "app"))

	require.NoError(t, fs.Delete("/components"))
	assert.Equal(t, []string{"/App.jsx"}, fs.Files())
	assert.True(t, errors.Is(fs.Delete("/components"), ErrNotFound))
	assert.True(t, errors.Is(fs.Delete("/"), ErrInvalidPath))
}

func TestViewFileAndRanges(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/a.js", "one\ntwo\nthree"))

	out, err := fs.View("/a.js", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "     1\tone\n     2\ttwo\n     3\tthree", out)

	out, err = fs.View("/a.js", 2, -1)
	require.NoError(t, err)
	assert.Equal(t, "     2\ttwo\n     3\tthree", out)

	out, err = fs.View("/a.js", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "     1\tone", out)

	_, err = fs.View("/a.js", 5, 6)
	assert.True(t, errors.Is(err, ErrLineRange))
}

func TestViewDirectory(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/App.jsx", ""))
	require.NoError(t, fs.CreateFile("/components/Button.jsx", ""))

	out, err := fs.View("/", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "[FILE] App.jsx\n[DIR] components/", out)

	out, err = fs.View("/App.jsx", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "(empty file)", out)
}

func TestSnapshotRoundTripKeepsDirectories(t *testing.T) {
	snap := Snapshot{
		"/App.jsx":   {Type: TypeFile, Content: "app"},
		"/empty":     {Type: TypeDirectory},
		"/lib/x.js":  {Type: TypeFile, Content: "x"},
		"/lib":       {Type: TypeDirectory},
		"/nested/ok": {Content: "typeless nodes are files"},
	}
	fs, err := FromSnapshot(snap)
	require.NoError(t, err)

	got := fs.Snapshot()
	assert.Equal(t, Node{Type: TypeDirectory}, got["/empty"])
	assert.Equal(t, Node{Type: TypeDirectory}, got["/nested"])
	assert.Equal(t, "typeless nodes are files", got["/nested/ok"].Content)
	assert.Len(t, got, 6)

	_, err = FromSnapshot(Snapshot{"/x": {Type: "symlink"}})
	assert.True(t, errors.Is(err, ErrInvalidPath))
}

func TestConcurrentWrites(t *testing.T) {
	fs := New()
	require.NoError(t, fs.CreateFile("/counter.txt", ""))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = fs.InsertInFile("/counter.txt", 0, "x")
			_ = fs.Snapshot()
		}()
	}
	wg.Wait()
	content, err := fs.ReadFile("/counter.txt")
	require.NoError(t, err)
	assert.Len(t, content, 20*2-1)
}
