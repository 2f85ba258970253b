// Package scrape 实现对官网的抓取与解析：目录（packs）、卡牌列表（cards）、卡图。
//
// 约束：
//   - Fetch 不做缓存、不做重试、不做限速（重试由 pool 层统一控制）
//   - 解析是纯函数：相同输入 => 相同输出
//   - 站点结构漂移被限制在本包内部；核心流程只依赖 domain 实体
package scrape

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/coko7/vegapull/internal/locale"
)

// Client 持有一个 locale 的抓取目标与 HTTP client。
// 自身无可变状态，可被多个 worker 并发使用。
type Client struct {
	http *http.Client
	loc  locale.Localizer
	log  *zap.Logger
}

func NewClient(httpClient *http.Client, loc locale.Localizer, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{http: httpClient, loc: loc, log: log}
}

// Localizer 返回构造时的翻译表（只读）。
func (c *Client) Localizer() locale.Localizer { return c.loc }

// CardListURL 返回目录页 URL；packID 非空时带 series 查询参数（单个卡包的卡牌列表）。
func (c *Client) CardListURL(packID string) string {
	u := c.loc.Hostname + "/cardlist"
	if packID != "" {
		u += "?series=" + url.QueryEscape(packID)
	}
	return u
}

// ImageFullURL 把页面里的相对图片地址（形如 "../images/cardlist/..."）补全为绝对地址。
func (c *Client) ImageFullURL(imgURL string) string {
	imgURL = strings.TrimSpace(imgURL)
	if imgURL == "" {
		return ""
	}
	if strings.HasPrefix(imgURL, "http://") || strings.HasPrefix(imgURL, "https://") {
		return imgURL
	}
	// 官网的 data-src 以 "../" 开头，指向站点根下的路径。
	imgURL = strings.TrimPrefix(imgURL, "..")
	return c.loc.Hostname + "/" + strings.TrimLeft(imgURL, "/")
}

// FetchDocument 抓取一个 HTML 文档并返回原始字节。
// 非 2xx 与传输错误都已按错误分类包装（见 errors.go），调用方不必再看状态码。
func (c *Client) FetchDocument(ctx context.Context, target string) ([]byte, error) {
	c.log.Debug("GET 文档", zap.String("url", target))
	return c.fetch(ctx, target)
}

// FetchAsset 抓取一个二进制资源（卡图）。
// 空 payload 视为失败：站点偶尔返回 200 + 空体，落盘前必须拦下。
func (c *Client) FetchAsset(ctx context.Context, target string) ([]byte, error) {
	c.log.Debug("GET 资源", zap.String("url", target))
	b, err := c.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, &TransientError{URL: target, Err: errEmptyPayload}
	}
	return b, nil
}

var errEmptyPayload = errors.New("payload 为空")

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(target, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		// body 读到一半断开：按临时失败重试。
		return nil, classifyTransport(target, err)
	}
	return b, nil
}
