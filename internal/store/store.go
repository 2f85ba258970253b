// Package store 实现数据集的落盘与装载。
//
// 布局（<root>/<locale>/ 为一个 snapshot）：
//
//	packs.json            目录（全部卡包的元数据，按目录顺序）
//	cards_<packID>.json   一个卡包的全部卡牌（一个卡包一个文件）
//	images/<packID>/<cardID><ext>  卡图（键稳定，重跑覆盖而不是堆积）
//	vega.meta.toml        本次 pull 的统计信息
//
// 写入纪律：一律走 fsx 的临时文件 + 原子 rename；内容一致时不触碰已有文件。
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/infra/fsx"
)

const metaFile = "vega.meta.toml"

// Error 是存储层的结构化错误（磁盘满、权限不足等）。
// 单个文件的写入失败只影响该项；只有数据根目录不可用才值得中止整个 run。
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("存储失败：%s：%v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store 是一个 (root, locale) 的数据集句柄，自身无可变状态，可并发使用。
type Store struct {
	root   string
	locale string
	log    *zap.Logger
}

func New(root, locale string, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	return Store{root: filepath.Clean(strings.TrimSpace(root)), locale: locale, log: log}
}

// Dir 返回 snapshot 目录 <root>/<locale>。
func (s Store) Dir() string { return filepath.Join(s.root, s.locale) }

func (s Store) PacksPath() string { return filepath.Join(s.Dir(), "packs.json") }

func (s Store) CardsPath(packID domain.PackID) string {
	return filepath.Join(s.Dir(), fmt.Sprintf("cards_%s.json", packID))
}

func (s Store) ImagePath(packID domain.PackID, cardID, ext string) string {
	return filepath.Join(s.Dir(), "images", string(packID), cardID+ext)
}

// Prepare 创建 snapshot 目录。失败意味着数据根不可写：这是少数值得中止整个 run 的错误。
func (s Store) Prepare() error {
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return &Error{Path: s.Dir(), Err: err}
	}
	return nil
}

// WritePacks 落盘目录文件。packs 必须已排好序（调用方在聚合后 Normalize）。
func (s Store) WritePacks(packs []domain.Pack) error {
	b, err := marshalJSON(packs)
	if err != nil {
		return &Error{Path: s.PacksPath(), Err: err}
	}
	wrote, err := fsx.WriteFileIfChanged(s.Dir(), "packs.json", b)
	if err != nil {
		return &Error{Path: s.PacksPath(), Err: err}
	}
	s.log.Debug("写入 packs.json", zap.Int("packs", len(packs)), zap.Bool("wrote", wrote))
	return nil
}

// WriteCards 落盘一个卡包的卡牌文件。
func (s Store) WriteCards(packID domain.PackID, cards []domain.Card) error {
	b, err := marshalJSON(cards)
	if err != nil {
		return &Error{Path: s.CardsPath(packID), Err: err}
	}
	name := fmt.Sprintf("cards_%s.json", packID)
	wrote, err := fsx.WriteFileIfChanged(s.Dir(), name, b)
	if err != nil {
		return &Error{Path: s.CardsPath(packID), Err: err}
	}
	s.log.Debug("写入卡牌文件", zap.String("pack", string(packID)), zap.Int("cards", len(cards)), zap.Bool("wrote", wrote))
	return nil
}

// HasImage 判断某张卡图是否已在本地（存在且非空 => 跳过下载）。
func (s Store) HasImage(packID domain.PackID, cardID, ext string) bool {
	return fsx.FileHasContent(s.ImagePath(packID, cardID, ext))
}

// WriteImage 落盘一张卡图。键是稳定的 (packID, cardID)，重跑时确定性覆盖。
func (s Store) WriteImage(packID domain.PackID, cardID, ext string, data []byte) error {
	dir := filepath.Join(s.Dir(), "images", string(packID))
	if err := fsx.WriteFileAtomic(dir, cardID+ext, data); err != nil {
		return &Error{Path: s.ImagePath(packID, cardID, ext), Err: err}
	}
	return nil
}

// MetaStats 是一次 pull 的统计信息（vega.meta.toml）。
type MetaStats struct {
	Locale         string    `toml:"locale"`
	Mode           string    `toml:"mode"`
	ImagesIncluded bool      `toml:"images_included"`
	PullStartedAt  time.Time `toml:"pull_started_at"`
	PullDurationMS int64     `toml:"pull_duration_ms"`
	Packs          []string  `toml:"packs"`
}

// WriteMeta 落盘 pull 统计。统计信息随每次 run 变化，不走 if-changed。
func (s Store) WriteMeta(m MetaStats) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return &Error{Path: filepath.Join(s.Dir(), metaFile), Err: err}
	}
	if err := fsx.WriteFileAtomic(s.Dir(), metaFile, buf.Bytes()); err != nil {
		return &Error{Path: filepath.Join(s.Dir(), metaFile), Err: err}
	}
	return nil
}

// LoadSnapshot 从一个 snapshot 目录装载数据集（WritePacks/WriteCards 的逆操作）。
// 缺失的卡牌文件按空卡包处理并继续（部分 pull 也应当可 diff）。
func LoadSnapshot(dir string) (domain.Snapshot, error) {
	b, err := os.ReadFile(filepath.Join(dir, "packs.json"))
	if err != nil {
		return domain.Snapshot{}, &Error{Path: filepath.Join(dir, "packs.json"), Err: err}
	}

	var packs []domain.Pack
	if err := json.Unmarshal(b, &packs); err != nil {
		return domain.Snapshot{}, &Error{Path: filepath.Join(dir, "packs.json"), Err: err}
	}

	snap := domain.Snapshot{
		Packs: packs,
		Cards: make(map[domain.PackID][]domain.Card, len(packs)),
	}
	if len(packs) > 0 {
		snap.Locale = packs[0].Locale
	}

	for _, p := range packs {
		path := filepath.Join(dir, fmt.Sprintf("cards_%s.json", p.ID))
		cb, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return domain.Snapshot{}, &Error{Path: path, Err: err}
		}
		var cards []domain.Card
		if err := json.Unmarshal(cb, &cards); err != nil {
			return domain.Snapshot{}, &Error{Path: path, Err: err}
		}
		snap.Cards[p.ID] = cards
	}

	snap.Normalize()
	return snap, nil
}

// marshalJSON 统一 JSON 输出形态：缩进 + 末尾换行，保证文件可读、可 diff。
func marshalJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
