// Package diff 比较两个 snapshot，产出新增/移除/变更三类结果。
//
// 匹配口径：Pack 按 id，Card 按 "packID/cardID"；比较是逐字段的结构化比较，
// 与集合内的顺序无关。结果只在内存中产出，不落盘。
package diff

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/coko7/vegapull/internal/domain"
)

// LocaleMismatchError 表示两个 snapshot 的 locale 不同：比较无意义，立即失败。
type LocaleMismatchError struct {
	A, B string
}

func (e *LocaleMismatchError) Error() string {
	return fmt.Sprintf("snapshot 的 locale 不一致：%q vs %q，无法比较", e.A, e.B)
}

// FieldDelta 是一个字段的前后值（字符串化后的稳定表示；缺失统一为 "null"）。
type FieldDelta struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Change 是一个 id 在两个 snapshot 之间的字段级变更。
type Change struct {
	ID     string       `json:"id"`
	Deltas []FieldDelta `json:"deltas"`
}

// Section 是一类实体（packs 或 cards）的比较结果；三个集合互斥。
type Section struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []Change `json:"changed"`
}

// Result 是一次比较的完整结果。
type Result struct {
	Locale string  `json:"locale"`
	Packs  Section `json:"packs"`
	Cards  Section `json:"cards"`
}

// Empty 判断两个 snapshot 是否完全一致。
func (r Result) Empty() bool {
	return len(r.Packs.Added) == 0 && len(r.Packs.Removed) == 0 && len(r.Packs.Changed) == 0 &&
		len(r.Cards.Added) == 0 && len(r.Cards.Removed) == 0 && len(r.Cards.Changed) == 0
}

// Diff 比较两个 snapshot（a 为旧、b 为新）。
// added = b 有 a 没有；removed = a 有 b 没有；changed = 双方都有但字段不同。
func Diff(a, b domain.Snapshot) (Result, error) {
	if a.Locale != "" && b.Locale != "" && a.Locale != b.Locale {
		return Result{}, &LocaleMismatchError{A: a.Locale, B: b.Locale}
	}

	res := Result{Locale: a.Locale}
	if res.Locale == "" {
		res.Locale = b.Locale
	}

	res.Packs = diffPacks(a.Packs, b.Packs)
	res.Cards = diffCards(a, b)
	return res, nil
}

func diffPacks(a, b []domain.Pack) Section {
	aByID := make(map[domain.PackID]domain.Pack, len(a))
	for _, p := range a {
		aByID[p.ID] = p
	}
	bByID := make(map[domain.PackID]domain.Pack, len(b))
	for _, p := range b {
		bByID[p.ID] = p
	}

	var sec Section
	for id, pb := range bByID {
		pa, ok := aByID[id]
		if !ok {
			sec.Added = append(sec.Added, string(id))
			continue
		}
		if deltas := packDeltas(pa, pb); len(deltas) > 0 {
			sec.Changed = append(sec.Changed, Change{ID: string(id), Deltas: deltas})
		}
	}
	for id := range aByID {
		if _, ok := bByID[id]; !ok {
			sec.Removed = append(sec.Removed, string(id))
		}
	}

	sec.sort()
	return sec
}

func diffCards(a, b domain.Snapshot) Section {
	aByKey := cardIndex(a)
	bByKey := cardIndex(b)

	var sec Section
	for key, cb := range bByKey {
		ca, ok := aByKey[key]
		if !ok {
			sec.Added = append(sec.Added, key)
			continue
		}
		if deltas := cardDeltas(ca, cb); len(deltas) > 0 {
			sec.Changed = append(sec.Changed, Change{ID: key, Deltas: deltas})
		}
	}
	for key := range aByKey {
		if _, ok := bByKey[key]; !ok {
			sec.Removed = append(sec.Removed, key)
		}
	}

	sec.sort()
	return sec
}

func cardIndex(s domain.Snapshot) map[string]domain.Card {
	idx := map[string]domain.Card{}
	for packID, cards := range s.Cards {
		for _, c := range cards {
			idx[string(packID)+"/"+c.ID] = c
		}
	}
	return idx
}

func (s *Section) sort() {
	sort.Strings(s.Added)
	sort.Strings(s.Removed)
	sort.Slice(s.Changed, func(i, j int) bool { return s.Changed[i].ID < s.Changed[j].ID })
}

func packDeltas(a, b domain.Pack) []FieldDelta {
	var out []FieldDelta
	appendDelta(&out, "name", a.Name, b.Name)
	appendDelta(&out, "position", strconv.Itoa(a.Position), strconv.Itoa(b.Position))
	return out
}

func cardDeltas(a, b domain.Card) []FieldDelta {
	var out []FieldDelta
	appendDelta(&out, "name", a.Name, b.Name)
	appendDelta(&out, "rarity", string(a.Rarity), string(b.Rarity))
	appendDelta(&out, "category", string(a.Category), string(b.Category))
	appendDelta(&out, "img_url", a.ImgURL, b.ImgURL)
	appendDelta(&out, "colors", fmtColors(a.Colors), fmtColors(b.Colors))
	appendDelta(&out, "cost", fmtOptInt(a.Cost), fmtOptInt(b.Cost))
	appendDelta(&out, "attributes", fmtAttrs(a.Attributes), fmtAttrs(b.Attributes))
	appendDelta(&out, "power", fmtOptInt(a.Power), fmtOptInt(b.Power))
	appendDelta(&out, "counter", fmtOptInt(a.Counter), fmtOptInt(b.Counter))
	appendDelta(&out, "types", strings.Join(a.Types, "/"), strings.Join(b.Types, "/"))
	appendDelta(&out, "effect", a.Effect, b.Effect)
	appendDelta(&out, "trigger", fmtOptStr(a.Trigger), fmtOptStr(b.Trigger))
	return out
}

func appendDelta(out *[]FieldDelta, field, before, after string) {
	if before == after {
		return
	}
	*out = append(*out, FieldDelta{Field: field, Before: before, After: after})
}

// 缺失值统一字符串化为 "null"，与 JSON 里“字段省略”的语义对应。
func fmtOptInt(v *int) string {
	if v == nil {
		return "null"
	}
	return strconv.Itoa(*v)
}

func fmtOptStr(v *string) string {
	if v == nil {
		return "null"
	}
	return *v
}

func fmtColors(cs []domain.Color) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, "/")
}

func fmtAttrs(as []domain.Attribute) string {
	parts := make([]string, len(as))
	for i, a := range as {
		parts[i] = string(a)
	}
	return strings.Join(parts, "/")
}
