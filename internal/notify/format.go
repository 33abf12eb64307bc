package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/deusflow/newspulse/internal/article"
)

const maxKeyPoints = 3

// FormatDigest renders the ranked articles into the Telegram HTML digest.
func FormatDigest(articles []article.Article, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📰 <b>News Digest</b> — %s\n", now.Format("Mon, 2 Jan 2006"))
	fmt.Fprintf(&b, "<i>%d stories</i>\n\n", len(articles))

	for i, a := range articles {
		fmt.Fprintf(&b, "%d. <b><a href=\"%s\">%s</a></b>", i+1, a.URL, html.EscapeString(a.Title))
		fmt.Fprintf(&b, " (%d/100)\n", a.RelevanceScore)

		if a.Summary != "" && a.Summary != a.Title {
			fmt.Fprintf(&b, "%s\n", html.EscapeString(a.Summary))
		}

		points := a.KeyPoints
		if len(points) > maxKeyPoints {
			points = points[:maxKeyPoints]
		}
		for _, p := range points {
			fmt.Fprintf(&b, "  • %s\n", html.EscapeString(p))
		}

		meta := a.Source
		if a.Subtopic != "" {
			meta += " · " + a.Subtopic
		}
		if meta != "" {
			fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(meta))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
