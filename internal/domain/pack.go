package domain

import "strings"

// PackID 是卡包（booster/series）的唯一主键，来自官网 <option value="...">。
//
// 约束：要么得到非空 ID，要么整条记录作废；宁可少一条，也不允许写错键。
type PackID string

// ParsePackID 校验并解析规范化后的 pack id。
// 官网的 id 是纯数字串（例如 "569301"），但这里不强约束数字形态：
// 站点不受我们控制，形态漂移时只要求“非空且无空白”。
func ParsePackID(s string) (PackID, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n/\\") {
		return "", false
	}
	return PackID(s), true
}

// Pack 是一个卡包的元数据（解析后不可变）。
//
// Position 记录该卡包在目录中的首见顺序（从 0 开始），
// 用于在去重后仍保持官网目录的展示顺序。
type Pack struct {
	ID       PackID `json:"id"`
	Name     string `json:"name"`
	Locale   string `json:"locale"`
	Position int    `json:"position"`
}
