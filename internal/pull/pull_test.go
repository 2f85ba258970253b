package pull

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coko7/vegapull/internal/config"
	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/store"
)

const catalogHTML = `<html><body><div class="seriesCol">
<select id="series">
<option value="">ALL</option>
<option value="569101">ROMANCE DAWN [OP-01]</option>
<option value="569102">PARAMOUNT WAR [OP-02]</option>
</select>
</div></body></html>`

func cardHTML(id, name, category, img string) string {
	return fmt.Sprintf(`<dl id=%[1]q>
<dt><div class="infoCol"><span>%[1]s</span> | <span>R</span> | <span>%[3]s</span></div>
<div class="cardName">%[2]s</div></dt>
<dd><div class="frontCol"><img data-src=%[4]q></div>
<div class="backCol"><div class="color"><h3>Color</h3>Red</div>
<div class="text"><h3>Effect</h3>-</div></div></dd>
</dl>`, id, name, category, img)
}

func cardListHTML(blocks ...string) string {
	page := `<html><body><div class="resultCol">`
	for _, b := range blocks {
		id := b[8:16] // <dl id="XXXX-NNN"；卡牌 id 固定 8 个字符
		page += fmt.Sprintf(`<a data-src="#%s"></a>`, id)
	}
	page += `</div>`
	for _, b := range blocks {
		page += b
	}
	return page + `</body></html>`
}

// testSite 起一个最小的假官网：目录页、两个卡包的卡牌列表、卡图。
func testSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cardlist", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("series") {
		case "":
			fmt.Fprint(w, catalogHTML)
		case "569101":
			fmt.Fprint(w, cardListHTML(
				cardHTML("OP01-002", "Nico Robin", "CHARACTER", "../images/OP01-002.png"),
				cardHTML("OP01-001", "Roronoa Zoro", "LEADER", "../images/OP01-001.png"),
			))
		case "569102":
			fmt.Fprint(w, cardListHTML(
				cardHTML("OP02-001", "Edward Newgate", "LEADER", "../images/OP02-001.png"),
			))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/images/", func(w http.ResponseWriter, r *http.Request) {
		if filepath.Base(r.URL.Path) == "OP02-001.png" {
			// 一张图 404：单项失败，不影响整个 run。
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("png-bytes:" + filepath.Base(r.URL.Path)))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSettings(srvURL, outputDir string) config.Settings {
	return config.Settings{
		Locale:      "english",
		OutputDir:   outputDir,
		Concurrency: 2,
		BaseURL:     srvURL,
	}
}

func TestExecute_All(t *testing.T) {
	srv := testSite(t)
	out := t.TempDir()

	rr, err := Execute(context.Background(), testSettings(srv.URL, out), Scope{}, true, nil, nil)
	if err != nil {
		t.Fatalf("Execute 失败：%v", err)
	}

	if rr.Locale != "english" || rr.Scope != "all" || !rr.WithImages {
		t.Fatalf("report 头部不正确：%+v", rr)
	}
	if rr.Summary.Packs.Succeeded != 2 || rr.Summary.Packs.Failed != 0 {
		t.Fatalf("packs 统计不正确：%+v", rr.Summary.Packs)
	}
	if rr.Summary.Cards.Succeeded != 3 || rr.Summary.Cards.Failed != 0 {
		t.Fatalf("cards 统计不正确：%+v", rr.Summary.Cards)
	}
	// 三张卡图：两张下到、一张 404。
	if rr.Summary.Images.Succeeded != 2 || rr.Summary.Images.Failed != 1 {
		t.Fatalf("images 统计不正确：%+v", rr.Summary.Images)
	}

	var notFound *domain.JobResult
	for i := range rr.Jobs {
		if rr.Jobs[i].Kind == domain.JobKindImage && rr.Jobs[i].Status == domain.StatusFailed {
			notFound = &rr.Jobs[i]
		}
	}
	if notFound == nil || notFound.Key != "569102/OP02-001" || notFound.ErrorCode != domain.ErrCodeNotFound {
		t.Fatalf("404 卡图的 job 结果不正确：%+v", notFound)
	}

	// 落盘检查。
	dir := filepath.Join(out, "english")
	for _, name := range []string{"packs.json", "cards_569101.json", "cards_569102.json", "vega.meta.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("缺少文件 %s：%v", name, err)
		}
	}
	img, err := os.ReadFile(filepath.Join(dir, "images", "569101", "OP01-001.png"))
	if err != nil || string(img) != "png-bytes:OP01-001.png" {
		t.Fatalf("卡图内容不正确：%q %v", img, err)
	}

	// 装回 snapshot：卡牌按 id 排序。
	snap, err := store.LoadSnapshot(dir)
	if err != nil {
		t.Fatalf("LoadSnapshot 失败：%v", err)
	}
	cards := snap.Cards["569101"]
	if len(cards) != 2 || cards[0].ID != "OP01-001" || cards[1].ID != "OP01-002" {
		t.Fatalf("卡牌顺序不正确：%+v", cards)
	}
	if cards[0].ImgFullURL != srv.URL+"/images/OP01-001.png" {
		t.Fatalf("img_full_url 不正确：%q", cards[0].ImgFullURL)
	}
}

func TestExecute_SecondRunSkipsImages(t *testing.T) {
	srv := testSite(t)
	out := t.TempDir()
	set := testSettings(srv.URL, out)

	if _, err := Execute(context.Background(), set, Scope{}, true, nil, nil); err != nil {
		t.Fatalf("首次 Execute 失败：%v", err)
	}
	rr, err := Execute(context.Background(), set, Scope{}, true, nil, nil)
	if err != nil {
		t.Fatalf("二次 Execute 失败：%v", err)
	}

	// 已有的卡图全部 skipped；404 的那张仍然失败。
	if rr.Summary.Images.Skipped != 2 || rr.Summary.Images.Succeeded != 0 || rr.Summary.Images.Failed != 1 {
		t.Fatalf("二次 run 的 images 统计不正确：%+v", rr.Summary.Images)
	}
}

func TestExecute_PacksOnly(t *testing.T) {
	srv := testSite(t)
	out := t.TempDir()

	rr, err := Execute(context.Background(), testSettings(srv.URL, out), Scope{PacksOnly: true}, false, nil, nil)
	if err != nil {
		t.Fatalf("Execute 失败：%v", err)
	}
	if rr.Scope != "packs" {
		t.Fatalf("scope = %q", rr.Scope)
	}
	if rr.Summary.Cards.Succeeded != 0 || rr.Summary.Images.Succeeded != 0 {
		t.Fatalf("packs-only 不应产出 cards/images：%+v", rr.Summary)
	}

	dir := filepath.Join(out, "english")
	if _, err := os.Stat(filepath.Join(dir, "packs.json")); err != nil {
		t.Fatalf("缺少 packs.json：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cards_569101.json")); !os.IsNotExist(err) {
		t.Fatalf("packs-only 不应写卡牌文件")
	}
}

func TestExecute_SinglePack(t *testing.T) {
	srv := testSite(t)
	out := t.TempDir()

	rr, err := Execute(context.Background(), testSettings(srv.URL, out), Scope{PackID: "569102"}, false, nil, nil)
	if err != nil {
		t.Fatalf("Execute 失败：%v", err)
	}
	if rr.Scope != "pack:569102" {
		t.Fatalf("scope = %q", rr.Scope)
	}
	if rr.Summary.Cards.Succeeded != 1 {
		t.Fatalf("cards 统计不正确：%+v", rr.Summary.Cards)
	}

	dir := filepath.Join(out, "english")
	// 单包模式不解析目录、不写 packs.json。
	if _, err := os.Stat(filepath.Join(dir, "packs.json")); !os.IsNotExist(err) {
		t.Fatalf("单包模式不应写 packs.json")
	}
	if _, err := os.Stat(filepath.Join(dir, "cards_569102.json")); err != nil {
		t.Fatalf("缺少 cards_569102.json：%v", err)
	}
}

func TestExecute_MissingPackIsJobFailure(t *testing.T) {
	srv := testSite(t)
	out := t.TempDir()

	rr, err := Execute(context.Background(), testSettings(srv.URL, out), Scope{PackID: "999999"}, false, nil, nil)
	if err != nil {
		t.Fatalf("单个卡包 404 不应中止 run：%v", err)
	}
	if len(rr.Jobs) != 1 {
		t.Fatalf("jobs = %d：%+v", len(rr.Jobs), rr.Jobs)
	}
	j := rr.Jobs[0]
	if j.Kind != domain.JobKindCards || j.Status != domain.StatusFailed || j.ErrorCode != domain.ErrCodeNotFound {
		t.Fatalf("404 卡包的 job 结果不正确：%+v", j)
	}
	if rr.Summary.Cards.Failed != 1 {
		t.Fatalf("整体失败的卡包至少记一条失败：%+v", rr.Summary.Cards)
	}
}

func TestExecute_InvalidConfigFatal(t *testing.T) {
	_, err := Execute(context.Background(), config.Settings{Locale: "klingon"}, Scope{}, false, nil, nil)
	var ce *config.Error
	if !errors.As(err, &ce) || ce.Field != "locale" {
		t.Fatalf("非法 locale 应当立即失败：%v", err)
	}
}

// recordingObserver 收集观察到的事件（测试用）。
type recordingObserver struct {
	mu     sync.Mutex
	starts int
	phases []string
	jobs   int
}

func (o *recordingObserver) OnStart(config.Settings, Scope, bool) {
	o.mu.Lock()
	o.starts++
	o.mu.Unlock()
}

func (o *recordingObserver) OnPhaseDone(name string, _ map[string]any, _ time.Duration) {
	o.mu.Lock()
	o.phases = append(o.phases, name)
	o.mu.Unlock()
}

func (o *recordingObserver) OnJobDone(_, _ int, _ domain.JobResult) {
	o.mu.Lock()
	o.jobs++
	o.mu.Unlock()
}

func TestExecute_ObserverEvents(t *testing.T) {
	srv := testSite(t)
	out := t.TempDir()

	obs := &recordingObserver{}
	if _, err := Execute(context.Background(), testSettings(srv.URL, out), Scope{}, true, nil, obs); err != nil {
		t.Fatalf("Execute 失败：%v", err)
	}

	if obs.starts != 1 {
		t.Fatalf("OnStart 应恰好一次：%d", obs.starts)
	}
	wantPhases := []string{"resolve", "cards", "images"}
	if len(obs.phases) != 3 {
		t.Fatalf("阶段事件不正确：%v", obs.phases)
	}
	for i, want := range wantPhases {
		if obs.phases[i] != want {
			t.Fatalf("阶段顺序不正确：%v", obs.phases)
		}
	}
	// cards 2 个 job + images 3 个 job（OnJobDone 不覆盖 resolve 阶段的合成结果）。
	if obs.jobs != 5 {
		t.Fatalf("job 事件数 = %d，期望 5", obs.jobs)
	}
}
