package scrape

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/coko7/vegapull/internal/domain"
)

// FetchImage 下载一张卡图。
// 幂等跳过（本地已存在非空文件则不下载）由调用方在下载前判定，本函数只管取数据。
func (c *Client) FetchImage(ctx context.Context, card domain.Card) ([]byte, error) {
	target := card.ImgFullURL
	if target == "" {
		target = c.ImageFullURL(card.ImgURL)
	}
	if target == "" {
		return nil, fmt.Errorf("卡牌 %s 没有图片地址", card.ID)
	}
	return c.FetchAsset(ctx, target)
}

// ImageExt 从图片地址推断扩展名（含点号），与源资源格式保持一致。
// 推断不出来时退回 ".png"（官网卡图的默认格式）。
func ImageExt(imgURL string) string {
	imgURL = strings.TrimSpace(imgURL)
	if i := strings.IndexByte(imgURL, '?'); i >= 0 {
		imgURL = imgURL[:i]
	}
	ext := strings.ToLower(path.Ext(path.Base(imgURL)))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ".png"
	}
}
