package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/locale"
)

// 卡牌列表页的选择器（官网结构漂移只改这里）。
const (
	cardAnchorSelector  = "div.resultCol a"
	cardNameSelector    = "dt div.cardName"
	cardRaritySelector  = "dt div.infoCol span:nth-child(2)"
	cardCategorySel     = "dt div.infoCol span:nth-child(3)"
	cardImgSelector     = "dd div.frontCol img"
	cardColorSelector   = "dd div.backCol div.color"
	cardCostSelector    = "dd div.backCol div.col2 div.cost"
	cardAttrImgSelector = "dd div.backCol div.col2 div.attribute img"
	cardPowerSelector   = "dd div.backCol div.col2 div.power"
	cardCounterSelector = "dd div.backCol div.col2 div.counter"
	cardTypesSelector   = "dd div.backCol div.feature"
	cardEffectSelector  = "dd div.backCol div.text"
	cardTriggerSelector = "dd div.backCol div.trigger"
)

// CardListResult 是一个卡牌列表文档的解析结果。
//
// 解析按“逐条折叠”而非“首错即断”：一条记录坏掉只进 Failed，
// 其余记录照常产出；可选字段的降级只进 Warnings。
type CardListResult struct {
	Cards    []domain.Card
	Warnings []string
	Failed   []*ParseError
}

// HarvestCards 抓取并解析一个卡包的全部卡牌。
// 文档整体取不到时返回错误（由调度层按分类决定重试或记失败）。
func (c *Client) HarvestCards(ctx context.Context, packID domain.PackID) (CardListResult, error) {
	html, err := c.FetchDocument(ctx, c.CardListURL(string(packID)))
	if err != nil {
		return CardListResult{}, err
	}

	res := ParseCardList(html, packID, c.loc)
	for i := range res.Cards {
		res.Cards[i].ImgFullURL = c.ImageFullURL(res.Cards[i].ImgURL)
	}

	c.log.Debug("卡包解析完成",
		zap.String("pack", string(packID)),
		zap.Int("cards", len(res.Cards)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// ParseCardList 解析卡牌列表文档（纯函数）。
//
// 文档结构：div.resultCol 下的 <a data-src="#<id>"> 指向同页的 <dl id="<id>"> 详情块。
func ParseCardList(html []byte, packID domain.PackID, loc locale.Localizer) CardListResult {
	var res CardListResult

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		res.Failed = append(res.Failed, &ParseError{Record: string(packID), Field: "document", Err: err})
		return res
	}

	doc.Find(cardAnchorSelector).Each(func(i int, a *goquery.Selection) {
		ref, _ := a.Attr("data-src")
		cardID := strings.TrimPrefix(strings.TrimSpace(ref), "#")
		if cardID == "" {
			res.Failed = append(res.Failed, &ParseError{Record: fmt.Sprintf("%s[%d]", packID, i), Field: "id"})
			return
		}

		dl := doc.Find("dl#" + cardID).First()
		if dl.Length() == 0 {
			res.Failed = append(res.Failed, &ParseError{Record: cardID, Field: "detail", Err: fmt.Errorf("找不到 dl#%s", cardID)})
			return
		}

		card, warnings, perr := parseCard(dl, cardID, packID, loc)
		if perr != nil {
			res.Failed = append(res.Failed, perr)
			return
		}
		res.Cards = append(res.Cards, card)
		res.Warnings = append(res.Warnings, warnings...)
	})

	return res
}

// parseCard 解析单条卡牌记录。
// 必填字段（id/name/category）缺失 => *ParseError；可选字段缺失或无法解析 => warning + 缺失。
func parseCard(dl *goquery.Selection, cardID string, packID domain.PackID, loc locale.Localizer) (domain.Card, []string, *ParseError) {
	var warnings []string
	warnf := func(field, format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf("%s：%s：%s", cardID, field, fmt.Sprintf(format, args...)))
	}

	card := domain.Card{ID: cardID, PackID: packID}

	name, ok := childText(dl, cardNameSelector)
	if !ok || name == "" {
		return domain.Card{}, nil, &ParseError{Record: cardID, Field: "name"}
	}
	card.Name = name

	rawCategory, ok := childText(dl, cardCategorySel)
	if !ok || rawCategory == "" {
		return domain.Card{}, nil, &ParseError{Record: cardID, Field: "category"}
	}
	key, ok := loc.MatchCategory(rawCategory)
	if !ok {
		return domain.Card{}, nil, &ParseError{Record: cardID, Field: "category", Err: fmt.Errorf("无法识别的类别 %q", rawCategory)}
	}
	category, err := domain.CategoryFromKey(key)
	if err != nil {
		return domain.Card{}, nil, &ParseError{Record: cardID, Field: "category", Err: err}
	}
	card.Category = category

	// rarity 非必填：识别不了降级为缺失，不作废整条记录。
	if rawRarity, ok := childText(dl, cardRaritySelector); ok && rawRarity != "" {
		if key, ok := loc.MatchRarity(rawRarity); ok {
			if r, err := domain.RarityFromKey(key); err == nil {
				card.Rarity = r
			} else {
				warnf("rarity", "%v", err)
			}
		} else {
			warnf("rarity", "无法识别的稀有度 %q", rawRarity)
		}
	} else {
		warnf("rarity", "字段缺失")
	}

	if src, ok := dl.Find(cardImgSelector).First().Attr("data-src"); ok && strings.TrimSpace(src) != "" {
		card.ImgURL = strings.TrimSpace(src)
	} else {
		warnf("img_url", "字段缺失")
	}

	card.Colors = parseColors(dl, cardID, loc, &warnings)

	card.Cost = parseOptionalInt(dl, cardCostSelector, cardID, "cost", &warnings)
	card.Power = parseOptionalInt(dl, cardPowerSelector, cardID, "power", &warnings)
	card.Counter = parseOptionalInt(dl, cardCounterSelector, cardID, "counter", &warnings)

	card.Attributes = parseAttributes(dl, cardID, loc, &warnings)

	if raw, ok := childText(dl, cardTypesSelector); ok && raw != "" {
		for _, t := range strings.Split(raw, "/") {
			if t = strings.TrimSpace(t); t != "" {
				card.Types = append(card.Types, t)
			}
		}
	}

	if effect, ok := childText(dl, cardEffectSelector); ok {
		card.Effect = effect
	}

	if trigger, ok := childText(dl, cardTriggerSelector); ok && trigger != "" {
		card.Trigger = &trigger
	}

	return card, warnings, nil
}

// parseColors 解析颜色集合。
//
// 标签形如 "Red/Green"。个别 locale（法语站最常见）会给出既不带分隔符、
// 也不在表里的整串值；此时退化为逐字符匹配（CJK 单字颜色），
// 仍然失败的 token 记 warning 并丢弃——缺失优于猜测。
func parseColors(dl *goquery.Selection, cardID string, loc locale.Localizer, warnings *[]string) []domain.Color {
	raw, ok := childText(dl, cardColorSelector)
	if !ok || raw == "" {
		*warnings = append(*warnings, fmt.Sprintf("%s：colors：字段缺失", cardID))
		return nil
	}

	tokens := strings.Split(raw, "/")

	if len(tokens) == 1 {
		if _, ok := loc.MatchColor(tokens[0]); !ok {
			// 不可分割的整串：尝试逐字符识别（例如 "赤緑"）。
			var colors []domain.Color
			for _, ch := range tokens[0] {
				if key, ok := loc.MatchColor(string(ch)); ok {
					if c, err := domain.ColorFromKey(key); err == nil {
						colors = append(colors, c)
					}
				}
			}
			if len(colors) > 0 {
				return dedupColors(colors)
			}
			*warnings = append(*warnings, fmt.Sprintf("%s：colors：无法识别 %q，按缺失处理", cardID, raw))
			return nil
		}
	}

	var colors []domain.Color
	for _, tok := range tokens {
		key, ok := loc.MatchColor(tok)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s：colors：无法识别 %q，按缺失处理", cardID, tok))
			continue
		}
		c, err := domain.ColorFromKey(key)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("%s：colors：%v", cardID, err))
			continue
		}
		colors = append(colors, c)
	}
	return dedupColors(colors)
}

func dedupColors(in []domain.Color) []domain.Color {
	seen := map[domain.Color]struct{}{}
	out := in[:0]
	for _, c := range in {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// parseAttributes 解析攻击属性：优先解码图标 URL（最稳定），失败回退 alt 文本。
func parseAttributes(dl *goquery.Selection, cardID string, loc locale.Localizer, warnings *[]string) []domain.Attribute {
	img := dl.Find(cardAttrImgSelector).First()
	if img.Length() == 0 {
		// Event/Stage 没有属性图标，不算异常。
		return nil
	}

	if src, ok := img.Attr("src"); ok {
		if attrs, err := domain.AttributesFromIconURL(src); err == nil {
			return attrs
		}
	}

	alt, _ := img.Attr("alt")
	alt = strings.TrimSpace(alt)
	if alt == "" {
		return nil
	}

	var attrs []domain.Attribute
	for _, tok := range strings.Split(alt, "/") {
		key, ok := loc.MatchAttribute(tok)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s：attributes：无法识别 %q，按缺失处理", cardID, tok))
			continue
		}
		a, err := domain.AttributeFromKey(key)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("%s：attributes：%v", cardID, err))
			continue
		}
		attrs = append(attrs, a)
	}
	return attrs
}

// parseOptionalInt 解析数值字段（cost/power/counter）。
//
// "-"、空串、提不出数字的值都按缺失处理；只有“提不出数字且原文非空非 '-'”
// 才值得落一条 warning（法语站的 counter 偶尔混入日文原文）。
func parseOptionalInt(dl *goquery.Selection, selector, cardID, field string, warnings *[]string) *int {
	raw, ok := childText(dl, selector)
	if !ok {
		return nil
	}

	cleaned := strings.TrimSpace(strings.NewReplacer(",", "", " ", "").Replace(raw))
	if cleaned == "" || cleaned == "-" {
		return nil
	}

	digits := asciiDigits(cleaned)
	if digits == "" {
		*warnings = append(*warnings, fmt.Sprintf("%s：%s：无法解析 %q，按缺失处理", cardID, field, raw))
		return nil
	}

	v, err := strconv.Atoi(digits)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s：%s：无法解析 %q，按缺失处理", cardID, field, raw))
		return nil
	}
	return &v
}

// asciiDigits 提取字符串里的数字字符；全角数字（０-９）折算为 ASCII。
// 官网日语站的数值常用全角数字。
func asciiDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '０' && r <= '９':
			b.WriteRune('0' + (r - '０'))
		}
	}
	return b.String()
}

// childText 取第一个匹配节点的文本，剔除嵌套子元素（字段标签 <h3> 等）。
// 返回 ok=false 表示节点不存在。
func childText(s *goquery.Selection, selector string) (string, bool) {
	node := s.Find(selector).First()
	if node.Length() == 0 {
		return "", false
	}
	clone := node.Clone()
	clone.Children().Remove()
	return strings.TrimSpace(clone.Text()), true
}
