package scrape

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/locale"
)

func loadEN(t *testing.T) locale.Localizer {
	t.Helper()
	l, err := locale.Load("english")
	if err != nil {
		t.Fatalf("Load(english) 失败：%v", err)
	}
	return l
}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestParseCardList_Fixture(t *testing.T) {
	res := ParseCardList(loadFixture(t, "cardlist_en.html"), "569101", loadEN(t))

	// 5 条记录：4 条成功，1 条（缺名称）失败。
	if len(res.Cards) != 4 {
		t.Fatalf("cards = %d，期望 4（warnings：%v）", len(res.Cards), res.Warnings)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed = %d，期望 1：%v", len(res.Failed), res.Failed)
	}
	if res.Failed[0].Record != "OP01-004" || res.Failed[0].Field != "name" {
		t.Fatalf("失败记录不正确：%+v", res.Failed[0])
	}

	byID := map[string]domain.Card{}
	for _, c := range res.Cards {
		byID[c.ID] = c
	}

	leader := byID["OP01-001"]
	if leader.Name != "Roronoa Zoro" || leader.Rarity != domain.RarityLeader || leader.Category != domain.CategoryLeader {
		t.Fatalf("leader 基本字段不正确：%+v", leader)
	}
	if leader.PackID != "569101" {
		t.Fatalf("pack_id = %q", leader.PackID)
	}
	if leader.Cost == nil || *leader.Cost != 4 {
		t.Fatalf("leader 的 cost（life）应为 4：%v", leader.Cost)
	}
	if leader.Power == nil || *leader.Power != 5000 {
		t.Fatalf("leader 的 power 应为 5000：%v", leader.Power)
	}
	// counter 为 "-" => 缺失，且不产生 warning。
	if leader.Counter != nil {
		t.Fatalf("leader 的 counter 应为缺失：%v", *leader.Counter)
	}
	if !reflect.DeepEqual(leader.Attributes, []domain.Attribute{domain.AttributeSlash}) {
		t.Fatalf("leader 的属性不正确：%v", leader.Attributes)
	}
	if !reflect.DeepEqual(leader.Types, []string{"Supernovas", "Straw Hat Crew"}) {
		t.Fatalf("leader 的 types 不正确：%v", leader.Types)
	}
	if leader.ImgURL != "../images/cardlist/card/OP01-001.png" {
		t.Fatalf("img_url = %q", leader.ImgURL)
	}
	if leader.Trigger != nil {
		t.Fatalf("leader 不应有 trigger")
	}

	ch := byID["OP01-002"]
	// "1,000"/"4,000" 的千分位逗号必须被剥掉。
	if ch.Power == nil || *ch.Power != 4000 || ch.Counter == nil || *ch.Counter != 1000 {
		t.Fatalf("character 的数值不正确：power=%v counter=%v", ch.Power, ch.Counter)
	}
	if !reflect.DeepEqual(ch.Colors, []domain.Color{domain.ColorRed, domain.ColorGreen}) {
		t.Fatalf("character 的颜色不正确：%v", ch.Colors)
	}
	// 复合属性图标 ico_type06 => Slash+Strike。
	if !reflect.DeepEqual(ch.Attributes, []domain.Attribute{domain.AttributeSlash, domain.AttributeStrike}) {
		t.Fatalf("character 的属性不正确：%v", ch.Attributes)
	}

	ev := byID["OP01-003"]
	if ev.Category != domain.CategoryEvent {
		t.Fatalf("event 类别不正确：%q", ev.Category)
	}
	if ev.Power != nil || ev.Counter != nil {
		t.Fatalf("event 的 power/counter 应为缺失")
	}
	if ev.Attributes != nil {
		t.Fatalf("event 不应有属性：%v", ev.Attributes)
	}
	if ev.Trigger == nil || !strings.Contains(*ev.Trigger, "[Main]") {
		t.Fatalf("event 的 trigger 不正确：%v", ev.Trigger)
	}

	// "Teal" 不是合法颜色：降级为缺失 + warning，记录本身保留。
	st := byID["OP01-005"]
	if st.Colors != nil {
		t.Fatalf("无法识别的颜色应按缺失处理：%v", st.Colors)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "OP01-005") && strings.Contains(w, "Teal") {
			found = true
		}
	}
	if !found {
		t.Fatalf("缺少 Teal 的 warning：%v", res.Warnings)
	}
}

func TestParseCardList_Deterministic(t *testing.T) {
	html := loadFixture(t, "cardlist_en.html")
	en := loadEN(t)
	a := ParseCardList(html, "569101", en)
	b := ParseCardList(html, "569101", en)
	if !reflect.DeepEqual(a.Cards, b.Cards) {
		t.Fatalf("相同输入必须产出相同结果")
	}
}

func TestParseCardList_BrokenAnchor(t *testing.T) {
	html := []byte(`<div class="resultCol"><a data-src="#GHOST-001"></a></div>`)
	res := ParseCardList(html, "569101", loadEN(t))
	if len(res.Cards) != 0 || len(res.Failed) != 1 {
		t.Fatalf("悬空锚点应当记为失败：cards=%d failed=%d", len(res.Cards), len(res.Failed))
	}
	if res.Failed[0].Field != "detail" {
		t.Fatalf("失败字段应为 detail：%+v", res.Failed[0])
	}
}

func TestParseColors_CJKFallback(t *testing.T) {
	jp, err := locale.Load("japanese")
	if err != nil {
		t.Fatalf("Load(japanese) 失败：%v", err)
	}

	html := []byte(`<div class="resultCol"><a data-src="#OP01-060"></a></div>
<dl id="OP01-060">
  <dt>
    <div class="infoCol"><span>OP01-060</span> | <span>L</span> | <span>リーダー</span></div>
    <div class="cardName">ドンキホーテ・ドフラミンゴ</div>
  </dt>
  <dd>
    <div class="frontCol"><img data-src="../images/cardlist/card/OP01-060.png"></div>
    <div class="backCol"><div class="color"><h3>色</h3>赤緑</div></div>
  </dd>
</dl>`)

	res := ParseCardList(html, "569101", jp)
	if len(res.Cards) != 1 {
		t.Fatalf("cards = %d（failed：%v）", len(res.Cards), res.Failed)
	}
	// 无分隔符的整串 "赤緑" 退化为逐字符匹配。
	want := []domain.Color{domain.ColorRed, domain.ColorGreen}
	if !reflect.DeepEqual(res.Cards[0].Colors, want) {
		t.Fatalf("颜色 = %v，期望 %v", res.Cards[0].Colors, want)
	}
}

func TestAsciiDigits(t *testing.T) {
	cases := []struct{ in, want string }{
		{"5000", "5000"},
		{"５０００", "5000"},
		{"１,０００", "1000"},
		{"power 2000", "2000"},
		{"カウンター", ""},
		{"-", ""},
	}
	for _, c := range cases {
		if got := asciiDigits(c.in); got != c.want {
			t.Fatalf("asciiDigits(%q) = %q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestImageExt(t *testing.T) {
	cases := []struct{ in, want string }{
		{"../images/cardlist/card/OP01-001.png", ".png"},
		{"https://x.test/a/b.JPG", ".jpg"},
		{"a/b.webp?v=3", ".webp"},
		{"a/b", ".png"},
		{"", ".png"},
	}
	for _, c := range cases {
		if got := ImageExt(c.in); got != c.want {
			t.Fatalf("ImageExt(%q) = %q，期望 %q", c.in, got, c.want)
		}
	}
}
