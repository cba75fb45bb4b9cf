package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gagikpog/meme-navigator/internal/config"
	"github.com/gagikpog/meme-navigator/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"gorm.io/gorm"
)

// RegisterRoutes mounts RSS and Atom feed endpoints. The gate must be the
// no-device variant: feed readers send the token as the authorization query
// parameter and cannot set custom headers.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.AppConfig, authMW gin.HandlerFunc) {
	rg.GET("/feed", authMW, func(c *gin.Context) {
		feedType := c.DefaultQuery("type", "rss") // rss | atom
		renderFeed(c, db, cfg, feedType)
	})
	rg.GET("/feed.xml", authMW, func(c *gin.Context) {
		renderFeed(c, db, cfg, "rss")
	})
	rg.GET("/atom.xml", authMW, func(c *gin.Context) {
		renderFeed(c, db, cfg, "atom")
	})
}

type feedItem struct {
	Title   string
	Link    string
	GUID    string
	PubDate time.Time
	Content string
}

var markdown = goldmark.New()

func renderFeed(c *gin.Context, db *gorm.DB, cfg *config.AppConfig, feedType string) {
	var memes []models.MemeModel
	db.Where("state = ? AND is_private = ?", models.MemePublished, false).
		Order("created_at DESC").
		Limit(20).
		Find(&memes)

	token := c.Query("authorization")

	items := make([]feedItem, len(memes))
	for i, m := range memes {
		items[i] = feedItem{
			Title:   m.Title,
			Link:    fmt.Sprintf("%s/memes/%s", cfg.SiteURL, m.ID),
			GUID:    m.ID,
			PubDate: m.CreatedAt,
			Content: buildItemHTML(cfg, &m, token),
		}
	}

	switch feedType {
	case "atom":
		c.Header("Content-Type", "application/atom+xml; charset=utf-8")
		c.String(200, buildAtom(cfg.SiteTitle, "", cfg.SiteURL, items))
	default:
		c.Header("Content-Type", "application/rss+xml; charset=utf-8")
		c.String(200, buildRSS(cfg.SiteTitle, "", cfg.SiteURL, items))
	}
}

// buildItemHTML renders the description markdown and embeds the image with
// the reader's token so the <img> survives the access gate.
func buildItemHTML(cfg *config.AppConfig, m *models.MemeModel, token string) string {
	var buf bytes.Buffer
	imgSrc := fmt.Sprintf("%s/api/v1/files/%s", cfg.SiteURL, m.FileName)
	if token != "" {
		imgSrc += "?authorization=" + token
	}
	fmt.Fprintf(&buf, `<img src="%s" alt="%s"/>`, imgSrc, escapeXML(m.Title))
	if m.Description != "" {
		if err := markdown.Convert([]byte(m.Description), &buf); err != nil {
			buf.WriteString(escapeXML(m.Description))
		}
	}
	return buf.String()
}

func buildRSS(title, desc, link string, items []feedItem) string {
	now := time.Now().Format(time.RFC1123Z)
	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>%s</title>
    <link>%s</link>
    <description>%s</description>
    <lastBuildDate>%s</lastBuildDate>
`, escapeXML(title), escapeXML(link), escapeXML(desc), now)

	for _, item := range items {
		xml += fmt.Sprintf(`    <item>
      <title>%s</title>
      <link>%s</link>
      <guid>%s</guid>
      <pubDate>%s</pubDate>
      <description>%s</description>
    </item>
`, escapeXML(item.Title), escapeXML(item.Link), item.GUID,
			item.PubDate.Format(time.RFC1123Z), cdata(item.Content))
	}

	xml += `  </channel>
</rss>`
	return xml
}

func buildAtom(title, desc, link string, items []feedItem) string {
	now := time.Now().Format(time.RFC3339)
	xml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>%s</title>
  <subtitle>%s</subtitle>
  <link href="%s"/>
  <updated>%s</updated>
  <id>%s</id>
`, escapeXML(title), escapeXML(desc), escapeXML(link), now, escapeXML(link))

	for _, item := range items {
		xml += fmt.Sprintf(`  <entry>
    <title>%s</title>
    <link href="%s"/>
    <id>%s</id>
    <updated>%s</updated>
    <content type="html">%s</content>
  </entry>
`, escapeXML(item.Title), escapeXML(item.Link), item.GUID,
			item.PubDate.Format(time.RFC3339), cdata(item.Content))
	}

	xml += `</feed>`
	return xml
}

// cdata wraps s in a CDATA section. A literal "]]>" inside s would terminate
// the section early, so the sequence is split across two sections.
func cdata(s string) string {
	return "<![CDATA[" + strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>") + "]]>"
}

// escapeXML replaces XML special characters in attribute/element content.
func escapeXML(s string) string {
	result := ""
	for _, r := range s {
		switch r {
		case '&':
			result += "&amp;"
		case '<':
			result += "&lt;"
		case '>':
			result += "&gt;"
		case '"':
			result += "&quot;"
		default:
			result += string(r)
		}
	}
	return result
}
