package vector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/snapshare/config"
)

func newTestIndex(t *testing.T, snapshotPath string) *HNSWIndex {
	t.Helper()
	return NewHNSWIndex(config.VectorConfig{
		SnapshotPath: snapshotPath,
		M:            16,
		EfSearch:     20,
	})
}

func TestHNSWIndexUpsertAndQuery(t *testing.T) {
	idx := newTestIndex(t, "")

	require.NoError(t, idx.Upsert("file-a", []float32{1, 0, 0}, Payload{OwnerID: 1, DisplayName: "报告A"}))
	require.NoError(t, idx.Upsert("file-b", []float32{0, 1, 0}, Payload{OwnerID: 2, DisplayName: "报告B"}))
	assert.Equal(t, 2, idx.Count())

	matches, err := idx.Query([]float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "file-a", matches[0].ID)
	assert.Equal(t, uint(1), matches[0].Payload.OwnerID)
	assert.Greater(t, matches[0].Score, float32(0.9))
}

func TestHNSWIndexUpsertSameIDUpdates(t *testing.T) {
	idx := newTestIndex(t, "")

	require.NoError(t, idx.Upsert("file-a", []float32{1, 0, 0}, Payload{DisplayName: "旧名"}))
	require.NoError(t, idx.Upsert("file-a", []float32{0, 0, 1}, Payload{DisplayName: "新名"}))

	// 同ID重复插入不增加有效项
	assert.Equal(t, 1, idx.Count())

	matches, err := idx.Query([]float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "file-a", matches[0].ID)
	assert.Equal(t, "新名", matches[0].Payload.DisplayName)
}

func TestHNSWIndexDelete(t *testing.T) {
	idx := newTestIndex(t, "")

	require.NoError(t, idx.Upsert("file-a", []float32{1, 0, 0}, Payload{}))
	require.NoError(t, idx.Upsert("file-b", []float32{0, 1, 0}, Payload{}))

	require.NoError(t, idx.DeleteByIDs([]string{"file-a", "missing"}))
	assert.False(t, idx.Contains("file-a"))
	assert.True(t, idx.Contains("file-b"))
	assert.Equal(t, 1, idx.Count())

	// 惰性删除后的节点不应出现在检索结果里
	matches, err := idx.Query([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	for _, match := range matches {
		assert.NotEqual(t, "file-a", match.ID)
	}
}

func TestHNSWIndexEmptyQuery(t *testing.T) {
	idx := newTestIndex(t, "")
	matches, err := idx.Query([]float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestHNSWIndexSaveAndLoad(t *testing.T) {
	snapshotPath := filepath.Join(t.TempDir(), "vectors.hnsw")

	idx := newTestIndex(t, snapshotPath)
	require.NoError(t, idx.Upsert("file-a", []float32{1, 0, 0}, Payload{OwnerID: 7, DisplayName: "快照"}))
	require.NoError(t, idx.Save())

	restored := newTestIndex(t, snapshotPath)
	require.NoError(t, restored.Load())
	assert.Equal(t, 1, restored.Count())

	matches, err := restored.Query([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "file-a", matches[0].ID)
	assert.Equal(t, uint(7), matches[0].Payload.OwnerID)
}

func TestHNSWIndexLoadMissingSnapshot(t *testing.T) {
	idx := newTestIndex(t, filepath.Join(t.TempDir(), "absent.hnsw"))
	require.NoError(t, idx.Load())
	assert.Equal(t, 0, idx.Count())
}

func TestHNSWIndexDimensionCheck(t *testing.T) {
	idx := newTestIndex(t, "")
	require.NoError(t, idx.Upsert("file-a", []float32{1, 0, 0}, Payload{DisplayName: "三维"}))

	t.Run("维度不符的插入被拒绝", func(t *testing.T) {
		err := idx.Upsert("file-b", []float32{1, 0}, Payload{DisplayName: "二维"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
		assert.Equal(t, 1, idx.Count())
	})

	t.Run("维度不符的查询返回错误", func(t *testing.T) {
		_, err := idx.Query([]float32{1, 0}, 3)
		assert.Error(t, err)
	})

	t.Run("维度随快照一同恢复", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "index.snapshot")
		saved := newTestIndex(t, path)
		require.NoError(t, saved.Upsert("file-a", []float32{1, 0, 0}, Payload{}))
		require.NoError(t, saved.Save())

		loaded := newTestIndex(t, path)
		require.NoError(t, loaded.Load())
		err := loaded.Upsert("file-b", []float32{1, 0, 0, 0}, Payload{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
	})
}
