package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/coko7/vegapull/internal/domain"
)

// packOptionSelector 是目录页卡包下拉框的选择器（官网结构的一部分，变了只改这里）。
const packOptionSelector = "div.seriesCol select#series option"

// nextPageSelector 指向目录分页的“下一页”链接（不存在即为最后一页）。
const nextPageSelector = "div.seriesCol a.nextPage"

// ParsePackList 从目录页 HTML 解析卡包列表，并返回下一页链接（没有则为空串）。
//
// 容错：value 为空的 <option>（占位项）直接跳过；
// 文本为空的卡包保留 id、name 记空并落一条 warning——站点偶尔把名称放进属性里。
func ParsePackList(html []byte, localeCode string) (packs []domain.Pack, nextURL string, warnings []string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, "", nil, err
	}

	doc.Find(packOptionSelector).Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("value")
		id, ok := domain.ParsePackID(raw)
		if !ok {
			// 下拉框第一项通常是 "ALL"/空值占位，不算记录失败。
			return
		}

		name := strings.TrimSpace(s.Text())
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("卡包 %s 缺少名称", id))
		}

		packs = append(packs, domain.Pack{
			ID:     id,
			Name:   name,
			Locale: localeCode,
		})
	})

	if href, ok := doc.Find(nextPageSelector).First().Attr("href"); ok {
		nextURL = strings.TrimSpace(href)
	}
	return packs, nextURL, warnings, nil
}

// ResolvePacks 解析完整的卡包目录。
//
// 分页规则：从目录首页开始，沿“下一页”链接抓取，直到链接消失、页面 404、
// 或某一页没有贡献任何新卡包为止。id 去重保留首见顺序，Position 按首见顺序编号。
//
// 失败语义：首页取不到 => 整个解析失败；后续页取不到 => 截断 + warning，不中止。
func (c *Client) ResolvePacks(ctx context.Context) ([]domain.Pack, []string, error) {
	var (
		packs    []domain.Pack
		warnings []string
		seen     = map[domain.PackID]struct{}{}
	)

	pageURL := c.CardListURL("")
	for page := 0; pageURL != ""; page++ {
		html, err := c.FetchDocument(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, nil, err
			}
			warnings = append(warnings, fmt.Sprintf("目录第 %d 页抓取失败，目录被截断：%v", page+1, err))
			break
		}

		pagePacks, next, ws, err := ParsePackList(html, c.loc.Code)
		if err != nil {
			if page == 0 {
				return nil, nil, err
			}
			warnings = append(warnings, fmt.Sprintf("目录第 %d 页解析失败，目录被截断：%v", page+1, err))
			break
		}
		warnings = append(warnings, ws...)

		added := 0
		for _, p := range pagePacks {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			p.Position = len(packs)
			packs = append(packs, p)
			added++
		}

		c.log.Debug("目录页解析完成",
			zap.Int("page", page+1),
			zap.Int("new_packs", added),
			zap.String("next", next))

		if added == 0 {
			// 一整页全是重复：继续翻页只会原地打转。
			break
		}
		pageURL = c.resolveHref(next)
	}

	return packs, warnings, nil
}

// resolveHref 把页面内的相对链接补全为绝对 URL。
func (c *Client) resolveHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return c.loc.Hostname + "/" + strings.TrimLeft(href, "/")
}
