package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"stakeledger/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256Hash([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key.Bytes(), value))
	root, err := tr.Commit(1)
	require.NoError(t, err)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root.Bytes())
	require.NoError(t, err)

	got, err := restored.Get(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieResetDiscardsPendingWrites(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	tr, err := NewTrie(db, nil)
	require.NoError(t, err)

	committedKey := crypto.Keccak256([]byte("committed"))
	require.NoError(t, tr.Update(committedKey, []byte{1}))
	root, err := tr.Commit(1)
	require.NoError(t, err)

	pendingKey := crypto.Keccak256([]byte("pending"))
	require.NoError(t, tr.Update(pendingKey, []byte{2}))
	require.NoError(t, tr.Delete(committedKey))
	require.NotEqual(t, root, tr.Hash())

	require.NoError(t, tr.Reset(root))
	require.Equal(t, root, tr.Hash())

	got, err := tr.Get(pendingKey)
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = tr.Get(committedKey)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, got)
}
