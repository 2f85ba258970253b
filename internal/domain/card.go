package domain

import (
	"fmt"
	"strings"
)

// Rarity 是卡牌稀有度（解析边界做一次枚举校验，下游不再二次校验）。
type Rarity string

const (
	RarityCommon       Rarity = "Common"
	RarityUncommon     Rarity = "Uncommon"
	RarityRare         Rarity = "Rare"
	RaritySuperRare    Rarity = "SuperRare"
	RaritySecretRare   Rarity = "SecretRare"
	RarityLeader       Rarity = "Leader"
	RaritySpecial      Rarity = "Special"
	RarityTreasureRare Rarity = "TreasureRare"
	RarityPromo        Rarity = "Promo"
)

// RarityFromKey 把 localizer 给出的规范化 key 转为枚举。
// key 不区分大小写；未知值返回错误（由调用方决定按记录降级）。
func RarityFromKey(key string) (Rarity, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "common":
		return RarityCommon, nil
	case "uncommon":
		return RarityUncommon, nil
	case "rare":
		return RarityRare, nil
	case "super_rare", "superrare":
		return RaritySuperRare, nil
	case "secret_rare", "secretrare":
		return RaritySecretRare, nil
	case "leader":
		return RarityLeader, nil
	case "special":
		return RaritySpecial, nil
	case "treasure_rare", "treasurerare":
		return RarityTreasureRare, nil
	case "promo":
		return RarityPromo, nil
	default:
		return "", fmt.Errorf("未知 rarity key：%q", key)
	}
}

// Category 是卡牌类别。cost/power/counter/attributes 等字段是否有意义由类别决定，
// 但解析层不做“按类别清洗”：不适用与缺失统一表达为缺失（见 Card 字段注释）。
type Category string

const (
	CategoryLeader    Category = "Leader"
	CategoryCharacter Category = "Character"
	CategoryEvent     Category = "Event"
	CategoryStage     Category = "Stage"
	CategoryDon       Category = "Don"
)

func CategoryFromKey(key string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "leader":
		return CategoryLeader, nil
	case "character":
		return CategoryCharacter, nil
	case "event":
		return CategoryEvent, nil
	case "stage":
		return CategoryStage, nil
	case "don":
		return CategoryDon, nil
	default:
		return "", fmt.Errorf("未知 category key：%q", key)
	}
}

// Color 是卡牌颜色（一张卡可以有 0..n 个颜色）。
type Color string

const (
	ColorRed    Color = "Red"
	ColorGreen  Color = "Green"
	ColorBlue   Color = "Blue"
	ColorPurple Color = "Purple"
	ColorBlack  Color = "Black"
	ColorYellow Color = "Yellow"
)

func ColorFromKey(key string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "blue":
		return ColorBlue, nil
	case "purple":
		return ColorPurple, nil
	case "black":
		return ColorBlack, nil
	case "yellow":
		return ColorYellow, nil
	default:
		return "", fmt.Errorf("未知 color key：%q", key)
	}
}

// Attribute 是 Leader/Character 的攻击属性。
type Attribute string

const (
	AttributeSlash   Attribute = "Slash"
	AttributeStrike  Attribute = "Strike"
	AttributeRanged  Attribute = "Ranged"
	AttributeSpecial Attribute = "Special"
	AttributeWisdom  Attribute = "Wisdom"
	// AttributeUnknown 对应官网 ico_type12（目前只出现在 Imu Leader 上）。
	AttributeUnknown Attribute = "Unknown"
)

func AttributeFromKey(key string) (Attribute, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "slash":
		return AttributeSlash, nil
	case "strike":
		return AttributeStrike, nil
	case "ranged":
		return AttributeRanged, nil
	case "special":
		return AttributeSpecial, nil
	case "wisdom":
		return AttributeWisdom, nil
	case "unknown":
		return AttributeUnknown, nil
	default:
		return "", fmt.Errorf("未知 attribute key：%q", key)
	}
}

// AttributesFromIconURL 从属性图标 URL 解码属性组合。
// 官网图标命名固定为 ico_typeNN.png；NN 的组合表见下。
// URL 无法解码时返回错误，调用方回退到 alt 文本解析。
func AttributesFromIconURL(url string) ([]Attribute, error) {
	file := url
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	stem, ok := strings.CutPrefix(file, "ico_type")
	if !ok {
		return nil, fmt.Errorf("属性图标缺少 ico_type 前缀：%q", file)
	}
	value, _, ok := strings.Cut(stem, ".")
	if !ok {
		return nil, fmt.Errorf("属性图标缺少扩展名：%q", file)
	}

	switch value {
	case "01":
		return []Attribute{AttributeStrike}, nil
	case "02":
		return []Attribute{AttributeSlash}, nil
	case "03":
		return []Attribute{AttributeSpecial}, nil
	case "04":
		return []Attribute{AttributeRanged}, nil
	case "05":
		return []Attribute{AttributeWisdom}, nil
	case "06":
		return []Attribute{AttributeSlash, AttributeStrike}, nil
	case "07":
		return []Attribute{AttributeSlash, AttributeSpecial}, nil
	case "08":
		return []Attribute{AttributeStrike, AttributeRanged}, nil
	case "09":
		return []Attribute{AttributeStrike, AttributeSpecial}, nil
	case "10":
		return []Attribute{AttributeStrike, AttributeWisdom}, nil
	case "11":
		return []Attribute{AttributeSlash, AttributeWisdom}, nil
	case "12":
		return []Attribute{AttributeUnknown}, nil
	default:
		return nil, fmt.Errorf("未知属性图标编号：%q", value)
	}
}

// Card 是一张卡牌的结构化元数据（解析后不可变，由所属 Pack 独占）。
//
// 约束：
//   - 可选字段用指针表达缺失：站点未提供、或该类别不适用、或值无法解析，
//     三种情况统一为 nil（序列化时整个字段省略），绝不使用 0/-1 之类的哨兵值。
//   - ID 在 (pack, locale) 内唯一；ID/Name/Category 是必填字段，缺失时该条记录
//     解析失败（但不影响同文档的其他记录）。
type Card struct {
	ID       string   `json:"id"`
	PackID   PackID   `json:"pack_id"`
	Name     string   `json:"name"`
	Rarity   Rarity   `json:"rarity"`
	Category Category `json:"category"`

	ImgURL     string `json:"img_url"`
	ImgFullURL string `json:"img_full_url,omitempty"`

	Colors []Color `json:"colors"`

	// Cost 对 Leader 表示 life，对 Character/Event/Stage 表示 cost。
	Cost *int `json:"cost,omitempty"`

	Attributes []Attribute `json:"attributes"`

	Power   *int `json:"power,omitempty"`
	Counter *int `json:"counter,omitempty"`

	Types   []string `json:"types"`
	Effect  string   `json:"effect"`
	Trigger *string  `json:"trigger,omitempty"`
}
