package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToPage(t *testing.T) {
	t.Run("渲染为完整页面", func(t *testing.T) {
		page := string(MarkdownToPage([]byte("# 标题\n\n**加粗**文本"), "文档标题"))

		assert.Contains(t, page, "<!DOCTYPE html>")
		assert.Contains(t, page, "<title>文档标题</title>")
		assert.Contains(t, page, "<h1")
		assert.Contains(t, page, "<strong>加粗</strong>")
	})

	t.Run("标题被HTML转义", func(t *testing.T) {
		page := string(MarkdownToPage([]byte("text"), `<script>"注入"</script>`))

		assert.NotContains(t, page, "<title><script>")
		assert.Contains(t, page, "&lt;script&gt;")
	})

	t.Run("空标题使用默认值", func(t *testing.T) {
		page := string(MarkdownToPage([]byte("text"), ""))
		assert.Contains(t, page, "<title>Markdown Document</title>")
	})

	t.Run("代码块保留", func(t *testing.T) {
		page := string(MarkdownToPage([]byte("```go\nfmt.Println(1)\n```"), "code"))
		assert.Contains(t, page, "<pre>")
		assert.Contains(t, page, "fmt.Println(1)")
	})
}
