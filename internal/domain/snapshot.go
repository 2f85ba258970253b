package domain

import "sort"

// Snapshot 是某个 locale 在某一时刻的完整数据集（packs + 各自的 cards）。
//
// 约束：
//   - 只读：由一次 pull 构造，或由 store 从磁盘装载；构造后不再修改。
//   - Pack 独占其 Cards：Cards 以 PackID 为键，不跨 Pack 共享。
type Snapshot struct {
	Locale string            `json:"locale"`
	Packs  []Pack            `json:"packs"`
	Cards  map[PackID][]Card `json:"cards"`
}

// Normalize 把 snapshot 整理为确定性形态：
// packs 按 Position（相同则按 id）排序；每个 pack 的 cards 按 id 排序。
// 并发收集的结果顺序不确定，持久化与 diff 前必须先 Normalize。
func (s *Snapshot) Normalize() {
	sort.SliceStable(s.Packs, func(i, j int) bool {
		if s.Packs[i].Position != s.Packs[j].Position {
			return s.Packs[i].Position < s.Packs[j].Position
		}
		return s.Packs[i].ID < s.Packs[j].ID
	})
	for _, cards := range s.Cards {
		sort.SliceStable(cards, func(i, j int) bool {
			return cards[i].ID < cards[j].ID
		})
	}
}

// Pack 按 id 查找（找不到返回 false）。
func (s *Snapshot) Pack(id PackID) (Pack, bool) {
	for _, p := range s.Packs {
		if p.ID == id {
			return p, true
		}
	}
	return Pack{}, false
}
