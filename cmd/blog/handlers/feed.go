package handlers

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"spacetraveling/cmd/blog/dto"
	"spacetraveling/cmd/blog/services"
	"spacetraveling/config"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// postURL 은 프런트엔드의 포스트 페이지 주소(/post/<uid>)다.
func postURL(site config.SiteConfig, uid string) string {
	u, err := url.JoinPath(site.URL, "post", uid)
	if err != nil {
		return site.URL + "/post/" + url.PathEscape(uid)
	}
	return u
}

func writeXML(c *gin.Context, contentType string, v any) {
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = c.Writer.Write([]byte(xml.Header))
	if err := xml.NewEncoder(c.Writer).Encode(v); err != nil {
		_ = c.Error(err)
	}
}

// FeedHandler godoc
// @Summary      RSS feed
// @Tags         feed
// @Produce      xml
// @Success      200
// @Router       /feed.xml [get]
func FeedHandler(svc *services.PostService, site config.SiteConfig, size int) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := svc.List(c.Request.Context(), services.ListPostsInput{Page: 1, PageSize: size})
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}

		items := make([]rssItem, 0, len(page.Data))
		var latest time.Time
		for _, p := range page.Data {
			link := postURL(site, p.UID)
			item := rssItem{
				Title:       p.Title,
				Link:        link,
				Description: p.Subtitle,
				GUID:        link,
			}
			if p.FirstPublicationDate != nil {
				item.PubDate = p.FirstPublicationDate.Format(time.RFC1123Z)
				if p.FirstPublicationDate.After(latest) {
					latest = *p.FirstPublicationDate
				}
			}
			items = append(items, item)
		}

		feed := rssXML{
			Version: "2.0",
			Channel: rssChannel{
				Title:       site.Name,
				Link:        site.URL,
				Description: site.Description,
				Items:       items,
			},
		}
		if !latest.IsZero() {
			feed.Channel.LastBuildDate = latest.Format(time.RFC1123Z)
		}
		writeXML(c, "application/rss+xml; charset=utf-8", feed)
	}
}

// SitemapHandler godoc
// @Summary      Sitemap
// @Tags         feed
// @Produce      xml
// @Success      200
// @Router       /sitemap.xml [get]
func SitemapHandler(svc *services.PostService, site config.SiteConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := svc.AllPublished(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: err.Error()})
			return
		}

		urls := make([]sitemapURL, 0, len(entries)+1)
		urls = append(urls, sitemapURL{Loc: site.URL})
		for _, e := range entries {
			u := sitemapURL{Loc: postURL(site, e.UID)}
			if !e.LastModified.IsZero() {
				u.LastMod = e.LastModified.Format("2006-01-02")
			}
			urls = append(urls, u)
		}
		writeXML(c, "application/xml; charset=utf-8", sitemapURLSet{
			XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
			URLs:  urls,
		})
	}
}
