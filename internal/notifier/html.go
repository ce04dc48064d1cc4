package notifier

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var inlineStyles = []struct{ tag, styled string }{
	{"<table>", `<table style="border-collapse: collapse; width: 100%; margin: 20px 0; font-size: 14px; min-width: 600px;">`},
	{"<th>", `<th style="border: 1px solid #ddd; padding: 12px 10px; text-align: center; background-color: #f8f9fa; color: #2c3e50; font-weight: bold;">`},
	{"<td>", `<td style="border: 1px solid #ddd; padding: 12px 10px; text-align: center;">`},
	{"<tr>", `<tr style="background-color: #fff;">`},
	{"<h1>", `<h1 style="color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; font-size: 24px; text-align: center; margin-top: 0;">`},
	{"<h2>", `<h2 style="color: #2980b9; border-left: 5px solid #3498db; padding-left: 15px; margin-top: 35px; font-size: 20px; background-color: #f8f9fa; padding-top: 10px; padding-bottom: 10px;">`},
	{"<h3>", `<h3 style="color: #16a085; margin-top: 25px; font-size: 18px; border-bottom: 1px solid #eee; padding-bottom: 5px;">`},
	{"<strong>", `<strong style="color: #e74c3c;">`},
	{"<hr>", `<hr style="border: 0; border-top: 1px solid #eee; margin: 40px 0;">`},
	{"<blockquote>", `<blockquote style="margin: 20px 0; padding: 15px 20px; background-color: #f0f7ff; border-left: 5px solid #3498db; color: #34495e; border-radius: 4px;">`},
}

var todayRowRe = regexp.MustCompile(`<tr style="background-color: #fff;">(\s*<td[^>]*>\[TODAY\])`)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body style="font-family: Arial, 'PingFang SC', 'Microsoft YaHei', sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f5f5f5;">
<table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%%" style="background-color: #f5f5f5;">
<tr><td style="padding: 20px 0;">
<table role="presentation" cellspacing="0" cellpadding="0" border="0" align="center" width="90%%" style="max-width: 900px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1);">
<tr><td style="padding: 30px;">
<div style="color: #333;">
%s
</div>
<div style="text-align: center; margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #999;">
<p>本报告由 AI 助手自动生成 | 数据来源：东方财富</p>
<p>© %d 股票/基金智能研判系统</p>
</div>
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>
`

// RenderHTML converts the markdown report to a styled standalone page.
// Rows whose first cell carries the [TODAY] marker are highlighted and the
// marker is removed.
func RenderHTML(title, markdown string, year int) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	body := buf.String()
	for _, s := range inlineStyles {
		body = strings.ReplaceAll(body, s.tag, s.styled)
	}
	body = todayRowRe.ReplaceAllString(body, `<tr style="background-color: #fff9c4;">$1`)
	body = strings.ReplaceAll(body, "[TODAY]", "")

	return fmt.Sprintf(pageTemplate, html.EscapeString(title), body, year), nil
}
