package htmlhost_test

import (
	"testing"

	"github.com/delaneyj/renderparty/htmlhost"
	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMountedTreeSerializes(t *testing.T) {
	page := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		return vdom.H("html", nil,
			vdom.H("body", vdom.Props{"class": "page"},
				vdom.H("h1", nil, props["title"]),
				vdom.H("p", nil, "static output"),
			),
		)
	}

	host := htmlhost.New()
	_, err := runtime.Mount(host, host.Container(), vdom.H(page, vdom.Props{"title": "Hello"}))
	require.NoError(t, err)

	assert.Equal(t,
		`<html><body class="page"><h1>Hello</h1><p>static output</p></body></html>`,
		host.HTML())
}

func TestUpdateReserializes(t *testing.T) {
	host := htmlhost.New()
	root, err := runtime.Mount(host, host.Container(), vdom.H("p", nil, "one"))
	require.NoError(t, err)

	root.Update(vdom.H("p", vdom.Props{"id": "x"}, "two"))
	require.NoError(t, root.FlushAll())

	assert.Equal(t, `<p id="x">two</p>`, host.HTML())
}

func TestTextAndAttributesEscaped(t *testing.T) {
	host := htmlhost.New()
	_, err := runtime.Mount(host, host.Container(),
		vdom.H("div", vdom.Props{"title": `a"b<c`}, "1 < 2 & 3"))
	require.NoError(t, err)

	assert.Equal(t,
		`<div title="a&quot;b&lt;c">1 &lt; 2 &amp; 3</div>`,
		host.HTML())
}
