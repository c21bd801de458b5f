// Package render 将Markdown内容渲染为完整的HTML页面
// 供公开分享端点直接输出，样式内联，不依赖外部资源
package render

import (
	"fmt"
	"html"

	"github.com/russross/blackfriday/v2"
)

// pageTemplate 分享页面外壳，正文由Markdown渲染结果填充
const pageTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
* { box-sizing: border-box; }
body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Noto Sans', Helvetica, Arial, sans-serif;
    line-height: 1.6;
    color: #333;
    max-width: 900px;
    margin: 0 auto;
    padding: 40px 20px;
    background: #fff;
}
h1, h2, h3, h4, h5, h6 {
    margin-top: 1.5em;
    margin-bottom: 0.5em;
    font-weight: 600;
    line-height: 1.25;
}
h1 { font-size: 2em; border-bottom: 1px solid #eaecef; padding-bottom: 0.3em; }
h2 { font-size: 1.5em; border-bottom: 1px solid #eaecef; padding-bottom: 0.3em; }
h3 { font-size: 1.25em; }
h4 { font-size: 1em; }
p { margin: 0 0 1em; }
a { color: #0366d6; text-decoration: none; }
a:hover { text-decoration: underline; }
code {
    background: rgba(27, 31, 35, 0.05);
    padding: 0.2em 0.4em;
    border-radius: 3px;
    font-family: 'SFMono-Regular', Consolas, 'Liberation Mono', Menlo, monospace;
    font-size: 0.85em;
}
pre {
    background: #f6f8fa;
    padding: 16px;
    overflow: auto;
    border-radius: 6px;
    line-height: 1.45;
}
pre code { background: transparent; padding: 0; font-size: 100%%; }
blockquote {
    border-left: 4px solid #dfe2e5;
    padding: 0 1em;
    color: #6a737d;
    margin: 0 0 1em;
}
ul, ol { padding-left: 2em; margin: 0 0 1em; }
li + li { margin-top: 0.25em; }
img { max-width: 100%%; height: auto; }
hr { border: none; border-top: 1px solid #eaecef; margin: 2em 0; }
table { border-collapse: collapse; width: 100%%; margin: 1em 0; }
th, td { border: 1px solid #dfe2e5; padding: 6px 13px; }
th { background: #f6f8fa; }
@media (prefers-color-scheme: dark) {
    body { background: #0d1117; color: #c9d1d9; }
    h1, h2 { border-bottom-color: #30363d; }
    a { color: #58a6ff; }
    code { background: rgba(110, 118, 129, 0.4); }
    pre { background: #161b22; }
    blockquote { border-left-color: #30363d; color: #8b949e; }
    th { background: #161b22; }
    th, td { border-color: #30363d; }
    hr { border-top-color: #30363d; }
}
</style>
</head>
<body>
%s
</body>
</html>`

// MarkdownToPage 渲染Markdown为完整HTML页面
// title为空时使用默认标题
func MarkdownToPage(content []byte, title string) []byte {
	if title == "" {
		title = "Markdown Document"
	}

	body := blackfriday.Run(content,
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: blackfriday.CommonHTMLFlags | blackfriday.NofollowLinks | blackfriday.NoreferrerLinks,
		})))

	return []byte(fmt.Sprintf(pageTemplate, html.EscapeString(title), body))
}
