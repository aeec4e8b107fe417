package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("missing file yields empty options", func(t *testing.T) {
		require := require.New(t)

		f, err := Open(filepath.Join(t.TempDir(), "options"))
		require.NoError(err)
		_, ok := f.Get(URL)
		require.False(ok)
	})
	t.Run("comments and blanks are skipped", func(t *testing.T) {
		require := require.New(t)

		path := filepath.Join(t.TempDir(), "options")
		err := os.WriteFile(path, []byte("# a comment\n\nurl=https://example.com\naccess_token = s3kr1t\n"), 0o644)
		require.NoError(err)

		f, err := Open(path)
		require.NoError(err)
		url, ok := f.Get(URL)
		require.True(ok)
		require.Equal(url, "https://example.com")
		require.Equal(f.GetDefault(AccessToken, ""), "s3kr1t")
	})
	t.Run("malformed line is an error", func(t *testing.T) {
		require := require.New(t)

		path := filepath.Join(t.TempDir(), "options")
		err := os.WriteFile(path, []byte("no equals sign here\n"), 0o644)
		require.NoError(err)

		_, err = Open(path)
		require.Error(err)
	})
}

func TestFlush(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		require := require.New(t)

		path := filepath.Join(t.TempDir(), "options")
		f, err := Open(path)
		require.NoError(err)
		f.Set(LastHomeID, "110330528023225442")
		require.NoError(f.Flush())

		g, err := Open(path)
		require.NoError(err)
		require.Equal(g.GetDefault(LastHomeID, ""), "110330528023225442")
	})
	t.Run("previous version is renamed to .bak", func(t *testing.T) {
		require := require.New(t)

		path := filepath.Join(t.TempDir(), "options")
		f, err := Open(path)
		require.NoError(err)
		f.Set(PullHome, "newest")
		require.NoError(f.Flush())
		f.Set(PullHome, "oldest")
		require.NoError(f.Flush())

		bak, err := os.ReadFile(path + ".bak")
		require.NoError(err)
		require.Equal(string(bak), "pull_home=newest\n")
		cur, err := os.ReadFile(path)
		require.NoError(err)
		require.Equal(string(cur), "pull_home=oldest\n")
	})
	t.Run("flush without changes writes nothing", func(t *testing.T) {
		require := require.New(t)

		path := filepath.Join(t.TempDir(), "options")
		f, err := Open(path)
		require.NoError(err)
		require.NoError(f.Flush())
		_, err = os.Stat(path)
		require.True(os.IsNotExist(err))
	})
}
