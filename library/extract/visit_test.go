package extract

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/search-mcp/library/browser"
)

type stubRenderer struct {
	page    *browser.Page
	err     error
	calls   int
	lastURL string
}

func (r *stubRenderer) Render(_ context.Context, url string) (*browser.Page, error) {
	r.calls++
	r.lastURL = url
	if r.err != nil {
		return nil, r.err
	}
	return r.page, nil
}

const articleParagraph = "Ownership is a set of rules that govern how a Rust program manages memory. " +
	"All programs have to manage the way they use a computer's memory while running. "

func articlePage() *browser.Page {
	body := strings.Repeat("<p>"+articleParagraph+"</p>\n", 8)
	return &browser.Page{
		URL:   "https://doc.rust-lang.org/book/ch04-01-what-is-ownership.html",
		Title: "Ownership in Rust",
		HTML: `<html><head><title>Ownership in Rust</title><script>var tracking = 1;</script></head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Ownership in Rust</h1><img src="https://doc.rust-lang.org/book/img/ferris.png" alt="ferris">` + body + `</article>
<footer>Footer only text</footer>
</body></html>`,
	}
}

func TestVisitUsesMainContent(t *testing.T) {
	renderer := &stubRenderer{page: articlePage()}
	visitor, err := NewVisitor(renderer, WithMinUsefulChars(0))
	require.NoError(t, err)

	out, err := visitor.Visit(context.Background(), "doc.rust-lang.org/book/ch04-01-what-is-ownership.html")
	require.NoError(t, err)
	require.Equal(t, "https://doc.rust-lang.org/book/ch04-01-what-is-ownership.html", renderer.lastURL)
	require.True(t, strings.HasPrefix(out, "# Ownership in Rust\n\n"), out)
	require.Contains(t, out, "Ownership is a set of rules")
	require.NotContains(t, out, "tracking")
	require.NotContains(t, out, "ferris.png")
}

func TestVisitFallsBackToFullPage(t *testing.T) {
	renderer := &stubRenderer{page: articlePage()}
	visitor, err := NewVisitor(renderer, WithMinUsefulChars(1_000_000))
	require.NoError(t, err)

	out, err := visitor.Visit(context.Background(), "https://doc.rust-lang.org/book/")
	require.NoError(t, err)
	require.Contains(t, out, "Footer only text")
	require.Contains(t, out, "Ownership is a set of rules")
	require.NotContains(t, out, "ferris.png")
}

func TestVisitTruncatesByRunes(t *testing.T) {
	page := &browser.Page{
		URL:   "https://zhuanlan.zhihu.com/p/1",
		Title: "所有权",
		HTML:  "<html><body><p>" + strings.Repeat("所有权规则", 100) + "</p></body></html>",
	}
	visitor, err := NewVisitor(&stubRenderer{page: page}, WithMaxChars(10), WithMinUsefulChars(1))
	require.NoError(t, err)

	out, err := visitor.Visit(context.Background(), "https://zhuanlan.zhihu.com/p/1")
	require.NoError(t, err)

	parts := strings.SplitN(out, "\n\n", 2)
	require.Len(t, parts, 2)
	require.True(t, strings.HasPrefix(parts[0], "# "))
	require.Equal(t, 10, utf8.RuneCountInString(parts[1]))
	require.True(t, utf8.ValidString(parts[1]))
}

func TestVisitRenderFailure(t *testing.T) {
	renderer := &stubRenderer{err: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	visitor, err := NewVisitor(renderer)
	require.NoError(t, err)

	_, err = visitor.Visit(context.Background(), "https://nowhere.invalid")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestVisitRejectsUnsupportedScheme(t *testing.T) {
	renderer := &stubRenderer{page: articlePage()}
	visitor, err := NewVisitor(renderer)
	require.NoError(t, err)

	_, err = visitor.Visit(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	require.Equal(t, 0, renderer.calls)
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "example.com/a", want: "https://example.com/a"},
		{in: "  http://example.com  ", want: "http://example.com"},
		{in: "//example.com/x", want: "https://example.com/x"},
		{in: "file:///etc/passwd", wantErr: true},
		{in: "", wantErr: true},
		{in: "https://", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeURL(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "你好", TruncateRunes("你好世界", 2))
	require.Equal(t, "abc", TruncateRunes("abc", 5))
	require.Equal(t, "abc", TruncateRunes("abc", 0))
}
