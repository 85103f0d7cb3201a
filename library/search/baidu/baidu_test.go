package baidu

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/search-mcp/library/search"
)

type stubQuerier struct {
	result  string
	err     error
	calls   int
	lastURL string
}

func (q *stubQuerier) Query(_ context.Context, url, _ string, out any) error {
	q.calls++
	q.lastURL = url
	if q.err != nil {
		return q.err
	}
	return json.Unmarshal([]byte(q.result), out)
}

func TestBrowserSearchDropsIncompleteItems(t *testing.T) {
	querier := &stubQuerier{result: `{
		"location": "https://www.baidu.com/s?wd=rust",
		"title": "rust_百度搜索",
		"items": [
			{"title": "Rust 程序设计语言", "link": "https://www.rust-lang.org/zh-CN/", "snippet": "一门赋予每个人构建可靠且高效软件能力的语言。", "source": "rust-lang.org"},
			{"title": "", "link": "https://www.baidu.com/link?url=x"},
			{"title": "Rust 百科", "link": "https://baike.baidu.com/item/rust"}
		]
	}`}

	pipeline, err := NewPipeline(querier, "", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"browser"}, pipeline.Strategies())

	outcome := pipeline.Search(context.Background(), "rust", 5)
	require.False(t, outcome.IsError())
	require.Equal(t, "https://www.baidu.com/s?rn=5&wd=rust", querier.lastURL)

	items := outcome.Items()
	require.Len(t, items, 2)
	require.Equal(t, 1, items[0].Index)
	require.Equal(t, "rust-lang.org", items[0].Source)
	require.Equal(t, 2, items[1].Index)
	require.Equal(t, "Rust 百科", items[1].Title)

	formatted := search.Format(outcome)
	require.Contains(t, formatted, "[2] Rust 百科\nlink: https://baike.baidu.com/item/rust\n")
}

func TestBrowserSearchDetectsVerificationPage(t *testing.T) {
	querier := &stubQuerier{result: `{
		"location": "https://wappass.baidu.com/static/captcha/tuxing.html",
		"title": "百度安全验证",
		"items": [{"title": "noise", "link": "https://example.com"}]
	}`}

	pipeline, err := NewPipeline(querier, "", nil)
	require.NoError(t, err)

	outcome := pipeline.Search(context.Background(), "rust", 5)
	require.True(t, outcome.IsError())
	require.Equal(t, BlockMessage, outcome.Message())
}

func TestBrowserSearchRenderFailure(t *testing.T) {
	querier := &stubQuerier{err: errors.New("navigation timeout")}

	pipeline, err := NewPipeline(querier, "", nil)
	require.NoError(t, err)

	outcome := pipeline.Search(context.Background(), "rust", 5)
	require.True(t, outcome.IsError())
	require.Contains(t, outcome.Message(), "navigation timeout")
}

func TestNewBrowserStrategyRequiresRenderer(t *testing.T) {
	_, err := NewBrowserStrategy(nil, "", nil)
	require.Error(t, err)
}
