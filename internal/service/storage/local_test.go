package storage

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiwangfds/snapshare/internal/database"
)

func newLocalProvider(t *testing.T) *LocalProvider {
	t.Helper()
	provider, err := NewLocalProvider(&database.StorageConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	return provider
}

func TestLocalPutGet(t *testing.T) {
	provider := newLocalProvider(t)

	err := provider.Put("files/1/a.md", strings.NewReader("# hello"), "text/markdown", map[string]string{
		MetaOriginalFilename: "origin.md",
	})
	require.NoError(t, err)

	t.Run("读取完整内容", func(t *testing.T) {
		body, err := provider.Get("files/1/a.md")
		require.NoError(t, err)
		defer body.Close()

		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "# hello", string(data))
	})

	t.Run("范围读取头部字节", func(t *testing.T) {
		head, err := provider.GetRange("files/1/a.md", 3)
		require.NoError(t, err)
		assert.Equal(t, "# h", string(head))
	})

	t.Run("元数据随Stat返回", func(t *testing.T) {
		info, err := provider.Stat("files/1/a.md")
		require.NoError(t, err)
		assert.Equal(t, "origin.md", info.Metadata[MetaOriginalFilename])
		assert.EqualValues(t, 7, info.Size)
	})

	t.Run("路径穿越被拒绝", func(t *testing.T) {
		err := provider.Put("../escape.md", strings.NewReader("x"), "", nil)
		assert.Error(t, err)
	})
}

func TestLocalCopyDelete(t *testing.T) {
	provider := newLocalProvider(t)

	require.NoError(t, provider.Put("orphan.md", strings.NewReader("content"), "text/markdown", nil))

	t.Run("复制携带新元数据", func(t *testing.T) {
		err := provider.Copy("orphan.md", "files/2/new.md", map[string]string{
			MetaOriginalFilename: "orphan.md",
		})
		require.NoError(t, err)

		info, err := provider.Stat("files/2/new.md")
		require.NoError(t, err)
		assert.Equal(t, "orphan.md", info.Metadata[MetaOriginalFilename])
	})

	t.Run("删除后对象不存在", func(t *testing.T) {
		require.NoError(t, provider.Delete("orphan.md"))

		exists, err := provider.Exists("orphan.md")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("删除缺失对象不报错", func(t *testing.T) {
		assert.NoError(t, provider.Delete("never-existed.md"))
	})
}

func TestLocalList(t *testing.T) {
	provider := newLocalProvider(t)

	keys := []string{"a.md", "b.md", "files/1/c.md", "files/1/d.md", "files/2/e.md"}
	for _, key := range keys {
		require.NoError(t, provider.Put(key, strings.NewReader("x"), "", nil))
	}

	t.Run("前缀过滤", func(t *testing.T) {
		page, err := provider.List("files/1/", "", 100)
		require.NoError(t, err)
		require.Len(t, page.Objects, 2)
		assert.False(t, page.Truncated)
	})

	t.Run("游标分页遍历全部对象", func(t *testing.T) {
		seen := make(map[string]bool)
		cursor := ""
		for {
			page, err := provider.List("", cursor, 2)
			require.NoError(t, err)
			for _, object := range page.Objects {
				seen[object.Key] = true
			}
			if !page.Truncated || page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}
		assert.Len(t, seen, len(keys))
	})
}

func TestLocalTestConnection(t *testing.T) {
	provider := newLocalProvider(t)
	assert.NoError(t, provider.TestConnection())
}

func TestOperationTimeout(t *testing.T) {
	t.Run("调用上下文带截止时间", func(t *testing.T) {
		ctx, cancel := opContext(2 * time.Second)
		defer cancel()
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
	})

	t.Run("非正超时取默认值", func(t *testing.T) {
		ctx, cancel := opContext(0)
		defer cancel()
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(defaultOperationTimeout), deadline, time.Second)
	})

	t.Run("工厂规范化超时配置", func(t *testing.T) {
		assert.Equal(t, defaultOperationTimeout, NewFactory(0).opTimeout)
		assert.Equal(t, 5*time.Second, NewFactory(5*time.Second).opTimeout)
	})
}
