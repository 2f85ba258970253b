// Package locale 把“站点的多语言标签”翻译为稳定的规范化 key。
//
// 官网每个语言区（locale）用不同文字标注颜色/类别/稀有度/属性；
// 解析层拿到的是页面原文，必须先经 Localizer 反查出规范化 key，
// 再由 domain 层转为枚举。站点标签漂移只需要改 TOML 表，不改代码。
package locale

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed locales/*.toml
var localeFS embed.FS

// Aliases 允许同一个规范化 key 接受多个站点标签（处理站点用词不一致）。
type Aliases struct {
	Colors     map[string][]string `toml:"colors"`
	Attributes map[string][]string `toml:"attributes"`
	Categories map[string][]string `toml:"categories"`
	Rarities   map[string][]string `toml:"rarities"`
}

// Localizer 是一个 locale 的完整翻译表（装载后只读）。
//
// 主表方向是 key -> 站点标签；匹配时做反向查找。
// 表很小（每类十个以内），线性反查即可，不值得预建索引。
type Localizer struct {
	Code     string `toml:"-"`
	Hostname string `toml:"hostname"`

	Colors     map[string]string `toml:"colors"`
	Attributes map[string]string `toml:"attributes"`
	Categories map[string]string `toml:"categories"`
	Rarities   map[string]string `toml:"rarities"`

	Aliases Aliases `toml:"aliases"`
}

// codeToFile 是 CLI locale 名到内置 TOML 文件名的映射（含短别名）。
var codeToFile = map[string]string{
	"english":      "en",
	"en":           "en",
	"english-asia": "en_asia",
	"en-asia":      "en_asia",
	"japanese":     "jp",
	"jp":           "jp",
	"french":       "fr",
	"fr":           "fr",
}

// Canonical 把用户输入的 locale 名规范化（例如 "jp" -> "japanese"）。
// 未知 locale 返回 false。
func Canonical(code string) (string, bool) {
	file, ok := codeToFile[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return "", false
	}
	switch file {
	case "en":
		return "english", true
	case "en_asia":
		return "english-asia", true
	case "jp":
		return "japanese", true
	case "fr":
		return "french", true
	}
	return "", false
}

// Codes 返回全部受支持的规范化 locale 名（字典序，用于帮助信息）。
func Codes() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(codeToFile))
	for code := range codeToFile {
		c, ok := Canonical(code)
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Load 装载内置的 locale 表。
func Load(code string) (Localizer, error) {
	file, ok := codeToFile[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Localizer{}, fmt.Errorf("不支持的 locale：%q（可用：%s）", code, strings.Join(Codes(), ", "))
	}

	b, err := localeFS.ReadFile("locales/" + file + ".toml")
	if err != nil {
		return Localizer{}, fmt.Errorf("读取内置 locale 表失败：%w", err)
	}
	return parse(code, b)
}

// LoadFromDir 从外部目录装载 locale 表（覆盖内置表；站点改版时无需重新发版）。
func LoadFromDir(dir, code string) (Localizer, error) {
	file, ok := codeToFile[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return Localizer{}, fmt.Errorf("不支持的 locale：%q", code)
	}
	path := filepath.Join(dir, file+".toml")
	b, err := os.ReadFile(path)
	if err != nil {
		return Localizer{}, fmt.Errorf("读取 locale 表失败：%w", err)
	}
	return parse(code, b)
}

func parse(code string, b []byte) (Localizer, error) {
	var l Localizer
	if err := toml.Unmarshal(b, &l); err != nil {
		return Localizer{}, fmt.Errorf("解析 locale 表失败：%w", err)
	}
	if strings.TrimSpace(l.Hostname) == "" {
		return Localizer{}, fmt.Errorf("locale 表缺少 hostname")
	}
	canonical, _ := Canonical(code)
	l.Code = canonical
	l.Hostname = strings.TrimRight(strings.TrimSpace(l.Hostname), "/")
	return l, nil
}

// MatchColor 反查颜色标签对应的规范化 key（找不到返回 false）。
func (l Localizer) MatchColor(value string) (string, bool) {
	return matchWithAlias(l.Colors, l.Aliases.Colors, value)
}

func (l Localizer) MatchAttribute(value string) (string, bool) {
	return matchWithAlias(l.Attributes, l.Aliases.Attributes, value)
}

func (l Localizer) MatchCategory(value string) (string, bool) {
	return matchWithAlias(l.Categories, l.Aliases.Categories, value)
}

func (l Localizer) MatchRarity(value string) (string, bool) {
	return matchWithAlias(l.Rarities, l.Aliases.Rarities, value)
}

// matchWithAlias 先对主表做精确反查，再对 alias 表做匹配。
// alias 对拉丁文字不区分大小写；CJK 文字等不受影响（小写转换是恒等的）。
func matchWithAlias(primary map[string]string, aliases map[string][]string, value string) (string, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", false
	}

	for key, label := range primary {
		if label == v {
			return key, true
		}
	}

	vLower := strings.ToLower(v)
	for key, list := range aliases {
		for _, a := range list {
			if a == v || strings.ToLower(a) == vLower {
				return key, true
			}
		}
	}
	return "", false
}
