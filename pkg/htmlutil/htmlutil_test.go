package htmlutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

const testPage = `<html><body>
<img src="/images/1.jpg"><img src="2.jpg"><img>
<form action="CheckCode.do"><input name="code"></form>
<table><tr><td class="bt">Stock  Symbol:<b>x</b></td><td> A
  B </td></tr></table>
</body></html>`

func TestResolve(t *testing.T) {
	base, err := url.Parse("http://example.com/docs/GetFile.do?lang=EN")
	require.NoError(t, err)

	doc, err := ParseDocument(base, []byte(testPage))
	require.NoError(t, err)

	images := ResolveAll(base, doc.Find("img"), "src")
	require.Len(t, images, 2)
	require.Equal(t, "http://example.com/images/1.jpg", images[0].String())
	require.Equal(t, "http://example.com/docs/2.jpg", images[1].String())

	action, ok := ResolveAttr(base, doc.Find("form").First(), "action")
	require.True(t, ok)
	require.Equal(t, "http://example.com/docs/CheckCode.do", action.String())

	_, ok = ResolveAttr(base, doc.Find("section"), "action")
	require.False(t, ok)
}

func TestText(t *testing.T) {
	doc, err := ParseDocument(&url.URL{}, []byte(testPage))
	require.NoError(t, err)

	cells := doc.Find("td")
	require.Equal(t, "Stock  Symbol:", OwnText(cells.Eq(0)))
	require.Equal(t, "Stock  Symbol:x", GetText(cells.Eq(0).Nodes[0]))
	require.Equal(t, "A B", CleanText(cells.Eq(1).Text()))
}
