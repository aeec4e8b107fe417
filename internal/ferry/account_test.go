package ferry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	account, err := Create(root, "hachyderm", "https://hachyderm.io/", "s3kr1t")
	require.NoError(err)
	require.Equal(account.BaseURL(), "https://hachyderm.io")
	require.Equal(account.Token(), "s3kr1t")

	_, err = Create(root, "hachyderm", "https://hachyderm.io", "again")
	require.Error(err)
}

func TestFind(t *testing.T) {
	require := require.New(t)

	root := t.TempDir()
	for _, name := range []string{"hachyderm", "mastodon.social", "mas.to"} {
		_, err := Create(root, name, "https://"+name, "token")
		require.NoError(err)
	}

	t.Run("unique prefix", func(t *testing.T) {
		account, err := Find(root, "hach")
		require.NoError(err)
		require.Equal(account.Name, "hachyderm")
	})
	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := Find(root, "mas")
		require.ErrorContains(err, "ambiguous")
	})
	t.Run("no match", func(t *testing.T) {
		_, err := Find(root, "fosstodon")
		require.ErrorContains(err, "no account")
	})
	t.Run("empty prefix with several accounts is ambiguous", func(t *testing.T) {
		_, err := Find(root, "")
		require.ErrorContains(err, "ambiguous")
	})
}

func TestFindEmptyRoot(t *testing.T) {
	require := require.New(t)

	_, err := Find(t.TempDir(), "any")
	require.Error(err)
}
