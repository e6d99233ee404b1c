package runtime_test

import (
	"testing"

	"github.com/delaneyj/renderparty/memhost"
	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Effects observe the committed host tree, never the pre-commit one.
func TestEffectRunsAfterCommit(t *testing.T) {
	var seen string
	host := memhost.New()
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		runtime.UseEffect(ctx, func() func() {
			seen = host.String()
			return nil
		}, []any{})
		return vdom.H("span", nil, "ready")
	}

	_, err := runtime.Mount(host, host.Container(), vdom.H(comp, nil))
	require.NoError(t, err)
	assert.Equal(t, `<span>ready</span>`, seen)
}

func TestEffectDepGatingAndCleanupOrder(t *testing.T) {
	var log []string
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		n, s := runtime.UseState(ctx, 0)
		set = s
		runtime.UseEffect(ctx, func() func() {
			tag := string(rune('a' + n/2))
			log = append(log, "create "+tag)
			return func() { log = append(log, "cleanup "+tag) }
		}, []any{n / 2})
		return vdom.H("span", nil, n)
	}

	_, root := mustMount(t, vdom.H(comp, nil))
	require.Equal(t, []string{"create a"}, log)

	set.Set(1) // dep n/2 unchanged: neither cleanup nor create
	require.NoError(t, root.FlushAll())
	assert.Equal(t, []string{"create a"}, log)

	set.Set(2) // dep changed: previous cleanup strictly before the new create
	require.NoError(t, root.FlushAll())
	assert.Equal(t, []string{"create a", "cleanup a", "create b"}, log)
}

func TestNilDepsRunEveryCommitEmptyDepsRunOnce(t *testing.T) {
	always, once := 0, 0
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		n, s := runtime.UseState(ctx, 0)
		set = s
		runtime.UseEffect(ctx, func() func() { always++; return nil }, nil)
		runtime.UseEffect(ctx, func() func() { once++; return nil }, []any{})
		return vdom.H("span", nil, n)
	}

	_, root := mustMount(t, vdom.H(comp, nil))
	set.Set(1)
	require.NoError(t, root.FlushAll())
	set.Set(2)
	require.NoError(t, root.FlushAll())

	assert.Equal(t, 3, always)
	assert.Equal(t, 1, once)
}

func TestUnmountRunsCleanupsTopDown(t *testing.T) {
	var log []string
	leaf := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		runtime.UseEffect(ctx, func() func() {
			return func() { log = append(log, "leaf") }
		}, []any{})
		return vdom.H("span", nil, "leaf")
	}
	branch := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		runtime.UseEffect(ctx, func() func() {
			return func() { log = append(log, "branch") }
		}, []any{})
		return vdom.H("div", nil, vdom.H(leaf, nil))
	}
	render := func(show bool) *vdom.Descriptor {
		if show {
			return vdom.H("main", nil, vdom.H(branch, nil))
		}
		return vdom.H("main", nil)
	}

	host, root := mustMount(t, render(true))
	require.Empty(t, log)

	root.Update(render(false))
	require.NoError(t, root.FlushAll())
	assert.Equal(t, []string{"branch", "leaf"}, log)
	assert.Equal(t, `<main></main>`, host.String())
}

// Layout effects for a commit flush before any passive effect of the
// same commit.
func TestLayoutEffectsFlushBeforePassive(t *testing.T) {
	var log []string
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		runtime.UseEffect(ctx, func() func() {
			log = append(log, "passive")
			return nil
		}, []any{})
		runtime.UseLayoutEffect(ctx, func() func() {
			log = append(log, "layout")
			return nil
		}, []any{})
		return vdom.H("span", nil, "x")
	}

	mustMount(t, vdom.H(comp, nil))
	assert.Equal(t, []string{"layout", "passive"}, log)
}

// Passive effects fire in component-subtree order: siblings left to
// right, children before their parent.
func TestPassiveEffectsRunInSubtreeOrder(t *testing.T) {
	var log []string
	leaf := func(name string) runtime.Component {
		return func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
			runtime.UseEffect(ctx, func() func() {
				log = append(log, name)
				return nil
			}, []any{})
			return vdom.H("span", nil, name)
		}
	}
	left, right := leaf("left"), leaf("right")
	parent := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		runtime.UseEffect(ctx, func() func() {
			log = append(log, "parent")
			return nil
		}, []any{})
		return vdom.H("div", nil, vdom.H(left, nil), vdom.H(right, nil))
	}

	mustMount(t, vdom.H(parent, nil))
	assert.Equal(t, []string{"left", "right", "parent"}, log)
}

// A panic inside an effect is contained: it reaches the uncaught-error
// hook as an EffectError and the committed tree stays intact.
func TestEffectPanicReportsEffectError(t *testing.T) {
	var caught error
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		runtime.UseEffect(ctx, func() func() {
			panic("effect exploded")
		}, []any{})
		return vdom.H("span", nil, "alive")
	}

	host := memhost.New()
	_, err := runtime.Mount(host, host.Container(), vdom.H(comp, nil),
		runtime.WithOnUncaught(func(e error) { caught = e }))
	require.NoError(t, err)

	var ee *runtime.EffectError
	require.ErrorAs(t, caught, &ee)
	assert.Contains(t, ee.Error(), "effect exploded")
	assert.Equal(t, `<span>alive</span>`, host.String())
}

func TestCleanupPanicReportsEffectError(t *testing.T) {
	var caught error
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		n, s := runtime.UseState(ctx, 0)
		set = s
		runtime.UseEffect(ctx, func() func() {
			return func() { panic("cleanup exploded") }
		}, []any{n})
		return vdom.H("span", nil, n)
	}

	host := memhost.New()
	root, err := runtime.Mount(host, host.Container(), vdom.H(comp, nil),
		runtime.WithOnUncaught(func(e error) { caught = e }))
	require.NoError(t, err)

	set.Set(1)
	require.NoError(t, root.FlushAll())

	var ee *runtime.EffectError
	require.ErrorAs(t, caught, &ee)
	assert.Equal(t, `<span>1</span>`, host.String())
}
