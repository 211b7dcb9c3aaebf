package keystore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, class KeyClass) *KeyEntry {
	return &KeyEntry{
		ID:        id,
		PairID:    "pair-" + id,
		Tag:       "TAG_" + id,
		Class:     class,
		Algorithm: AlgorithmRSA,
		Bits:      2048,
		Sealed:    []byte{1, 2, 3, 4},
		CreatedAt: time.Now(),
	}
}

func TestMemoryPutGet(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Put(entry("a", ClassPrivate)))

	got, err := m.Get("a")
	require.NoError(t, err)
	assert.Equal(t, ClassPrivate, got.Class)
	assert.Equal(t, "TAG_a", got.Tag)

	_, err = m.Get("b")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryRejectsDuplicates(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Put(entry("a", ClassPrivate)))

	assert.ErrorIs(t, m.Put(entry("a", ClassPublic)), ErrKeyAlreadyExists)

	sameTag := entry("b", ClassPublic)
	sameTag.Tag = "TAG_a"
	assert.ErrorIs(t, m.Put(sameTag), ErrKeyAlreadyExists)

	_, err := m.Get("b")
	assert.ErrorIs(t, err, ErrKeyNotFound, "rejected entry must not be stored")
}

func TestMemoryUntaggedEntries(t *testing.T) {
	m := NewMemoryStore()
	for _, id := range []string{"a", "b"} {
		e := entry(id, ClassPublic)
		e.Tag = ""
		require.NoError(t, m.Put(e))
	}
	_, err := m.FindByTag("")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryFindByTag(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Put(entry("a", ClassPrivate)))

	got, err := m.FindByTag("TAG_a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)

	require.NoError(t, m.Delete("a"))
	_, err = m.FindByTag("TAG_a")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, m.Put(entry("a", ClassPrivate)), "tag is free again after delete")
}

func TestMemoryList(t *testing.T) {
	m := NewMemoryStore()
	for i := range 6 {
		class := ClassPrivate
		if i%3 == 0 {
			class = ClassPublic
		}
		require.NoError(t, m.Put(entry(fmt.Sprintf("k%d", i), class)))
	}

	all, err := m.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	priv, _ := m.List(ClassPrivate)
	assert.Len(t, priv, 4)
	pub, _ := m.List(ClassPublic)
	assert.Len(t, pub, 2)
}

func TestMemoryDeleteZeroesSealed(t *testing.T) {
	m := NewMemoryStore()
	e := entry("a", ClassPrivate)
	require.NoError(t, m.Put(e))

	require.NoError(t, m.Delete("a"))
	assert.Equal(t, []byte{0, 0, 0, 0}, e.Sealed)
	assert.ErrorIs(t, m.Delete("a"), ErrKeyNotFound)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "PRIVATE", ClassPrivate.String())
	assert.Equal(t, "PUBLIC", ClassPublic.String())
	assert.Equal(t, "UNKNOWN", KeyClass(9).String())
	assert.Equal(t, "RSA", AlgorithmRSA.String())
	assert.Equal(t, "UNKNOWN", KeyAlgorithm(0).String())
}

func TestMemoryConcurrent(t *testing.T) {
	m := NewMemoryStore()
	const n = 40

	for i := range n {
		require.NoError(t, m.Put(entry(fmt.Sprintf("old-%d", i), ClassPublic)))
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = m.Put(entry(fmt.Sprintf("new-%d", i), ClassPrivate))
		}()
		go func() {
			defer wg.Done()
			_ = m.Delete(fmt.Sprintf("old-%d", i))
		}()
		go func() {
			defer wg.Done()
			_, _ = m.FindByTag(fmt.Sprintf("TAG_old-%d", i))
			_, _ = m.List(0)
		}()
	}
	wg.Wait()

	priv, _ := m.List(ClassPrivate)
	assert.Len(t, priv, n)
	pub, _ := m.List(ClassPublic)
	assert.Empty(t, pub)
}
