package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weiwangfds/snapshare/internal/database"
)

func TestTitleAndTextHTML(t *testing.T) {
	t.Run("提取标题和正文", func(t *testing.T) {
		title, text := TitleAndText([]byte("<title>Hello</title><body>World</body>"), database.KindHTML)
		assert.Equal(t, "Hello", title)
		assert.Equal(t, "World", text)
	})

	t.Run("剔除脚本和样式", func(t *testing.T) {
		html := `<html><head><title>Doc</title><style>body{color:red}</style></head>
<body><script>alert("x")</script><p>Visible   content</p></body></html>`
		title, text := TitleAndText([]byte(html), database.KindHTML)
		assert.Equal(t, "Doc", title)
		assert.Equal(t, "Visible content", text)
		assert.NotContains(t, text, "alert")
		assert.NotContains(t, text, "color:red")
	})

	t.Run("解码常用实体", func(t *testing.T) {
		_, text := TitleAndText([]byte("<p>a&nbsp;&amp;&nbsp;b &lt;tag&gt; &quot;q&quot; &#39;s&#39;</p>"), database.KindHTML)
		assert.Equal(t, `a & b <tag> "q" 's'`, text)
	})

	t.Run("无标题时返回空", func(t *testing.T) {
		title, text := TitleAndText([]byte("<p>only body</p>"), database.KindHTML)
		assert.Empty(t, title)
		assert.Equal(t, "only body", text)
	})

	t.Run("输出按字符截断", func(t *testing.T) {
		html := "<p>" + strings.Repeat("字", MaxOutputChars+100) + "</p>"
		_, text := TitleAndText([]byte(html), database.KindHTML)
		assert.Equal(t, MaxOutputChars, len([]rune(text)))
	})

	t.Run("超大输入被截断而不报错", func(t *testing.T) {
		html := "<title>Big</title>" + strings.Repeat("x", MaxInputBytes*2)
		title, _ := TitleAndText([]byte(html), database.KindHTML)
		assert.Equal(t, "Big", title)
	})
}

func TestTitleAndTextMarkdown(t *testing.T) {
	t.Run("提取一级标题和正文", func(t *testing.T) {
		title, text := TitleAndText([]byte("# My Doc\n\nSome **bold** text"), database.KindMarkdown)
		assert.Equal(t, "My Doc", title)
		assert.Equal(t, "Some bold text", text)
	})

	t.Run("只取第一个一级标题", func(t *testing.T) {
		title, _ := TitleAndText([]byte("intro\n\n# First\n\n# Second"), database.KindMarkdown)
		assert.Equal(t, "First", title)
	})

	t.Run("二级标题不作为文档标题", func(t *testing.T) {
		title, _ := TitleAndText([]byte("## Section\n\ncontent"), database.KindMarkdown)
		assert.Empty(t, title)
	})

	t.Run("剥离代码块保留链接文字", func(t *testing.T) {
		md := "# T\n\n```go\nfunc main() {}\n```\n\nsee [the docs](https://example.com) and `inline`"
		_, text := TitleAndText([]byte(md), database.KindMarkdown)
		assert.NotContains(t, text, "func main")
		assert.NotContains(t, text, "example.com")
		assert.Contains(t, text, "the docs")
		assert.Contains(t, text, "inline")
	})

	t.Run("图片整体剔除", func(t *testing.T) {
		_, text := TitleAndText([]byte("before ![alt text](img.png) after"), database.KindMarkdown)
		assert.Equal(t, "before after", text)
	})
}
