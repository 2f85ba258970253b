package diff

import (
	"errors"
	"reflect"
	"testing"

	"github.com/coko7/vegapull/internal/domain"
)

func snapA() domain.Snapshot {
	cost := 4
	return domain.Snapshot{
		Locale: "english",
		Packs: []domain.Pack{
			{ID: "569101", Name: "ROMANCE DAWN", Locale: "english", Position: 0},
			{ID: "569102", Name: "PARAMOUNT WAR", Locale: "english", Position: 1},
		},
		Cards: map[domain.PackID][]domain.Card{
			"569101": {
				{ID: "OP01-001", PackID: "569101", Name: "Roronoa Zoro", Cost: &cost},
				{ID: "OP01-002", PackID: "569101", Name: "Nico Robin"},
			},
		},
	}
}

func TestDiff_IdenticalIsEmpty(t *testing.T) {
	res, err := Diff(snapA(), snapA())
	if err != nil {
		t.Fatalf("Diff 失败：%v", err)
	}
	if !res.Empty() {
		t.Fatalf("相同 snapshot 的 diff 应为空：%+v", res)
	}
	if res.Locale != "english" {
		t.Fatalf("locale = %q", res.Locale)
	}
}

func TestDiff_AddedRemovedChanged(t *testing.T) {
	a := snapA()
	b := snapA()

	// b：删掉 569102，加一个 569103；改 569101 的名称。
	b.Packs = []domain.Pack{
		{ID: "569101", Name: "ROMANCE DAWN [OP-01]", Locale: "english", Position: 0},
		{ID: "569103", Name: "PILLARS OF STRENGTH", Locale: "english", Position: 1},
	}
	// 卡牌：OP01-002 消失、OP01-003 新增、OP01-001 的 cost 变缺失。
	b.Cards = map[domain.PackID][]domain.Card{
		"569101": {
			{ID: "OP01-001", PackID: "569101", Name: "Roronoa Zoro"},
			{ID: "OP01-003", PackID: "569101", Name: "Usopp"},
		},
	}

	res, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff 失败：%v", err)
	}

	if !reflect.DeepEqual(res.Packs.Added, []string{"569103"}) ||
		!reflect.DeepEqual(res.Packs.Removed, []string{"569102"}) {
		t.Fatalf("packs 增删不正确：%+v", res.Packs)
	}
	if len(res.Packs.Changed) != 1 || res.Packs.Changed[0].ID != "569101" {
		t.Fatalf("packs 变更不正确：%+v", res.Packs.Changed)
	}
	if d := res.Packs.Changed[0].Deltas; len(d) != 1 || d[0].Field != "name" {
		t.Fatalf("pack 变更字段不正确：%+v", d)
	}

	if !reflect.DeepEqual(res.Cards.Added, []string{"569101/OP01-003"}) ||
		!reflect.DeepEqual(res.Cards.Removed, []string{"569101/OP01-002"}) {
		t.Fatalf("cards 增删不正确：%+v", res.Cards)
	}
	if len(res.Cards.Changed) != 1 {
		t.Fatalf("cards 变更不正确：%+v", res.Cards.Changed)
	}
	d := res.Cards.Changed[0].Deltas
	// 缺失值字符串化为 "null"。
	if len(d) != 1 || d[0].Field != "cost" || d[0].Before != "4" || d[0].After != "null" {
		t.Fatalf("card 变更字段不正确：%+v", d)
	}
}

func TestDiff_Symmetry(t *testing.T) {
	a := snapA()
	b := snapA()
	b.Packs = append(b.Packs, domain.Pack{ID: "569103", Name: "X", Locale: "english", Position: 2})
	b.Cards["569101"] = append(b.Cards["569101"], domain.Card{ID: "OP01-009", PackID: "569101", Name: "Y"})

	ab, err := Diff(a, b)
	if err != nil {
		t.Fatalf("Diff(a,b) 失败：%v", err)
	}
	ba, err := Diff(b, a)
	if err != nil {
		t.Fatalf("Diff(b,a) 失败：%v", err)
	}

	// diff(A,B).added == diff(B,A).removed（反向同理）。
	if !reflect.DeepEqual(ab.Packs.Added, ba.Packs.Removed) ||
		!reflect.DeepEqual(ab.Packs.Removed, ba.Packs.Added) ||
		!reflect.DeepEqual(ab.Cards.Added, ba.Cards.Removed) ||
		!reflect.DeepEqual(ab.Cards.Removed, ba.Cards.Added) {
		t.Fatalf("diff 不对称：%+v vs %+v", ab, ba)
	}
}

func TestDiff_OrderIndependent(t *testing.T) {
	a := snapA()

	shuffled := snapA()
	shuffled.Packs = []domain.Pack{a.Packs[1], a.Packs[0]}
	cards := shuffled.Cards["569101"]
	cards[0], cards[1] = cards[1], cards[0]

	res, err := Diff(a, shuffled)
	if err != nil {
		t.Fatalf("Diff 失败：%v", err)
	}
	if !res.Empty() {
		t.Fatalf("比较必须与集合顺序无关：%+v", res)
	}
}

func TestDiff_LocaleMismatch(t *testing.T) {
	a := snapA()
	b := snapA()
	b.Locale = "japanese"

	_, err := Diff(a, b)
	var lme *LocaleMismatchError
	if !errors.As(err, &lme) {
		t.Fatalf("locale 不一致应当失败：%v", err)
	}

	// 一侧 locale 为空（例如空目录）：放行。
	b.Locale = ""
	if _, err := Diff(a, b); err != nil {
		t.Fatalf("空 locale 不应报不一致：%v", err)
	}
}
