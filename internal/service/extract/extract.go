// Package extract 提供HTML和Markdown文档的标题与正文提取
// 提取结果用于搜索索引，输入和输出都有大小上限以保证处理成本可控
package extract

import (
	"regexp"
	"strings"

	"github.com/weiwangfds/snapshare/internal/database"
)

const (
	// MaxInputBytes 参与提取的输入字节上限，超出部分直接截断
	MaxInputBytes = 100000
	// MaxOutputChars 提取文本的字符上限
	MaxOutputChars = 30000
)

var (
	titleTagRegexp    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptBlockRegexp = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRegexp  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	htmlTagRegexp     = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRegexp  = regexp.MustCompile(`\s+`)

	codeFenceRegexp  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRegexp = regexp.MustCompile("`([^`]*)`")
	imageRegexp      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRegexp       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingLineRegexp = regexp.MustCompile(`(?m)^#{1,6}\s.*$`)
	emphasisRegexp   = regexp.MustCompile(`(\*\*|__|\*|_|~~)`)
)

// htmlEntities 提取时处理的最小HTML实体集合
var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
)

// TitleAndText 从文档内容中提取标题和纯文本
// 参数:
//   - data: 文档原始内容
//   - kind: 文档类型，database.KindHTML或database.KindMarkdown
//
// 返回:
//   - string: 标题，无法提取时为空
//   - string: 用于搜索索引的纯文本
func TitleAndText(data []byte, kind string) (string, string) {
	if len(data) > MaxInputBytes {
		data = data[:MaxInputBytes]
	}

	switch kind {
	case database.KindMarkdown:
		return markdownTitleAndText(string(data))
	default:
		return htmlTitleAndText(string(data))
	}
}

// htmlTitleAndText 提取HTML文档的标题和正文
func htmlTitleAndText(content string) (string, string) {
	title := ""
	if matches := titleTagRegexp.FindStringSubmatch(content); len(matches) > 1 {
		title = collapseWhitespace(htmlEntities.Replace(matches[1]))
	}

	// 脚本和样式块先整体剔除，再剥掉剩余标签
	text := scriptBlockRegexp.ReplaceAllString(content, " ")
	text = styleBlockRegexp.ReplaceAllString(text, " ")
	text = htmlTagRegexp.ReplaceAllString(text, " ")
	text = htmlEntities.Replace(text)
	text = collapseWhitespace(text)

	return title, truncateChars(text, MaxOutputChars)
}

// markdownTitleAndText 提取Markdown文档的标题和正文
// 标题取第一个一级标题，标题行不进入正文；正文剥离Markdown标记后保留链接文字
func markdownTitleAndText(content string) (string, string) {
	title := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			break
		}
	}

	text := codeFenceRegexp.ReplaceAllString(content, " ")
	text = imageRegexp.ReplaceAllString(text, " ")
	text = linkRegexp.ReplaceAllString(text, "$1")
	text = inlineCodeRegexp.ReplaceAllString(text, "$1")
	text = headingLineRegexp.ReplaceAllString(text, " ")
	text = emphasisRegexp.ReplaceAllString(text, "")
	text = collapseWhitespace(text)

	return title, truncateChars(text, MaxOutputChars)
}

// collapseWhitespace 将连续空白压缩为单个空格并去掉首尾空白
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegexp.ReplaceAllString(s, " "))
}

// truncateChars 按字符数截断，避免在多字节字符中间切断
func truncateChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
