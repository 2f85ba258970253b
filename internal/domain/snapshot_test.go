package domain

import "testing"

func TestSnapshot_Normalize(t *testing.T) {
	s := Snapshot{
		Locale: "english",
		Packs: []Pack{
			{ID: "569103", Position: 2},
			{ID: "569101", Position: 0},
			{ID: "569102", Position: 1},
		},
		Cards: map[PackID][]Card{
			"569101": {{ID: "OP01-003"}, {ID: "OP01-001"}, {ID: "OP01-002"}},
		},
	}

	s.Normalize()

	if s.Packs[0].ID != "569101" || s.Packs[1].ID != "569102" || s.Packs[2].ID != "569103" {
		t.Fatalf("packs 排序不正确：%+v", s.Packs)
	}
	cards := s.Cards["569101"]
	if cards[0].ID != "OP01-001" || cards[2].ID != "OP01-003" {
		t.Fatalf("cards 排序不正确：%+v", cards)
	}

	if _, ok := s.Pack("569102"); !ok {
		t.Fatalf("Pack(569102) 应当存在")
	}
	if _, ok := s.Pack("999999"); ok {
		t.Fatalf("Pack(999999) 不应存在")
	}
}
