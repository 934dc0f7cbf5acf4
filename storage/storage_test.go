package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPutAndDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "/files/")
	require.NoError(t, err)

	url, err := l.Put(context.Background(), "u1/abc-my paper.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "/files/u1/abc-my%20paper.pdf", url)

	b, err := os.ReadFile(filepath.Join(dir, "u1", "abc-my paper.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	got, err := l.Get(context.Background(), "u1/abc-my paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	require.NoError(t, l.Delete(context.Background(), "u1/abc-my paper.pdf"))
	_, err = os.Stat(filepath.Join(dir, "u1", "abc-my paper.pdf"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, l.Delete(context.Background(), "u1/abc-my paper.pdf"))
}

func TestLocalRejectsTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	_, err = l.Put(context.Background(), "../escape.pdf", "application/pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, l.Delete(context.Background(), ""), ErrInvalidKey)
}

func TestObjectKey(t *testing.T) {
	k1 := ObjectKey("u1", "a.pdf")
	k2 := ObjectKey("u1", "a.pdf")
	assert.True(t, strings.HasPrefix(k1, "u1/"))
	assert.True(t, strings.HasSuffix(k1, "-a.pdf"))
	assert.NotEqual(t, k1, k2)
}
