package runtime_test

import (
	"sync"
	"testing"
	"time"

	"github.com/delaneyj/renderparty/memhost"
	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Three setter calls inside one batch coalesce into a single render
// and a single commit.
func TestBatchCoalescesUpdates(t *testing.T) {
	renders := 0
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		renders++
		n, s := runtime.UseState(ctx, 0)
		set = s
		return vdom.H("span", nil, n)
	}

	host, root := mustMount(t, vdom.H(comp, nil))
	require.Equal(t, 1, renders)
	host.ResetOps()

	require.NoError(t, root.Batch(func() {
		set.Update(func(p int) int { return p + 1 })
		set.Update(func(p int) int { return p + 1 })
		set.Update(func(p int) int { return p + 1 })
	}))

	assert.Equal(t, 2, renders)
	assert.Equal(t, 1, host.OpCounts()["setText"])
	assert.Equal(t, `<span>3</span>`, host.String())
}

// Outside a batch, each synchronous setter call gets its own pass.
func TestUnbatchedSyncSettersFlushIndividually(t *testing.T) {
	renders := 0
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		renders++
		n, s := runtime.UseState(ctx, 0)
		set = s
		return vdom.H("span", nil, n)
	}

	host, _ := mustMount(t, vdom.H(comp, nil))
	host.ResetOps()

	set.Set(1)
	set.Set(2)

	assert.Equal(t, 3, renders)
	assert.Equal(t, 2, host.OpCounts()["setText"])
	assert.Equal(t, `<span>2</span>`, host.String())
}

func TestNestedBatchesFlushOnceAtOutermostEnd(t *testing.T) {
	renders := 0
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		renders++
		n, s := runtime.UseState(ctx, 0)
		set = s
		return vdom.H("span", nil, n)
	}

	host, root := mustMount(t, vdom.H(comp, nil))

	root.StartBatch()
	set.Set(1)
	root.StartBatch()
	set.Set(2)
	require.NoError(t, root.EndBatch())
	require.Equal(t, 1, renders) // still inside the outer batch
	require.NoError(t, root.EndBatch())

	assert.Equal(t, 2, renders)
	assert.Equal(t, `<span>2</span>`, host.String())
}

// Strict mode renders every component twice per pass; effects and the
// committed output are unaffected.
func TestStrictModeDoubleRenders(t *testing.T) {
	renders, effects := 0, 0
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		renders++
		runtime.UseEffect(ctx, func() func() { effects++; return nil }, []any{})
		return vdom.H("span", nil, "strict")
	}

	host := memhost.New()
	_, err := runtime.Mount(host, host.Container(), vdom.H(comp, nil),
		runtime.WithStrictRender())
	require.NoError(t, err)

	assert.Equal(t, 2, renders)
	assert.Equal(t, 1, effects)
	assert.Equal(t, `<span>strict</span>`, host.String())
}

// An exhausted budget pauses rendering at a unit boundary with nothing
// committed; the next flush resumes and commits atomically.
func TestTickBudgetPausesWithoutPartialCommit(t *testing.T) {
	wide := func(label string) *vdom.Descriptor {
		kids := make([]any, 0, 40)
		for i := 0; i < 40; i++ {
			kids = append(kids, vdom.H("li", vdom.Props{"key": i}, label))
		}
		return vdom.H("ul", nil, kids...)
	}

	host, root := mustMount(t, wide("old"))
	host.ResetOps()

	root.Update(wide("new"))
	require.NoError(t, root.Tick(time.Nanosecond))
	assert.Empty(t, host.Ops, "paused pass must not touch the host")

	require.NoError(t, root.FlushAll())
	assert.Equal(t, 40, host.OpCounts()["setText"])
}

// A synchronous update arriving while a lower-priority pass is paused
// discards that pass; the eventual commit reflects both updates.
func TestHigherPriorityPreemptsPausedPass(t *testing.T) {
	var setA runtime.Setter[string]
	var setB runtime.Setter[string]
	cell := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		v, s := runtime.UseState(ctx, props["init"].(string))
		switch props["slot"] {
		case "a":
			setA = s
		case "b":
			setB = s
		}
		return vdom.H("td", nil, v)
	}
	row := vdom.H("tr", nil,
		vdom.H(cell, vdom.Props{"slot": "a", "init": "a0", "key": "a"}),
		vdom.H(cell, vdom.Props{"slot": "b", "init": "b0", "key": "b"}),
	)

	host, root := mustMount(t, row)

	root.AtPriority(runtime.PriorityNormal, func() { setA.Set("a1") })
	require.NoError(t, root.Tick(time.Nanosecond))
	require.Equal(t, `<tr><td>a0</td><td>b0</td></tr>`, host.String())

	setB.Set("b1") // sync: discards the paused pass and flushes

	assert.Equal(t, `<tr><td>a1</td><td>b1</td></tr>`, host.String())
}

func TestUpdateDrainsOnFlushAllNotBefore(t *testing.T) {
	host, root := mustMount(t, vdom.H("p", nil, "one"))
	host.ResetOps()

	root.Update(vdom.H("p", nil, "two"))
	assert.Empty(t, host.Ops)

	require.NoError(t, root.FlushAll())
	assert.Equal(t, `<p>two</p>`, host.String())
}

func TestUnmountRunsCleanupsAndIgnoresLaterWork(t *testing.T) {
	cleanups := 0
	var set runtime.Setter[int]
	comp := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		n, s := runtime.UseState(ctx, 0)
		set = s
		runtime.UseEffect(ctx, func() func() {
			return func() { cleanups++ }
		}, []any{})
		return vdom.H("span", nil, n)
	}

	host, root := mustMount(t, vdom.H(comp, nil))
	root.Unmount()

	assert.Equal(t, 1, cleanups)
	assert.Equal(t, ``, host.String())

	set.Set(9) // dropped
	root.Update(vdom.H("div", nil))
	assert.Error(t, root.FlushAll())
	assert.Equal(t, ``, host.String())
}

func TestPriorityOrderAndLabels(t *testing.T) {
	assert.True(t, runtime.PrioritySync > runtime.PriorityInteraction)
	assert.True(t, runtime.PriorityInteraction > runtime.PriorityNormal)
	assert.True(t, runtime.PriorityNormal > runtime.PriorityIdle)
	assert.Equal(t, "sync", runtime.PrioritySync.String())
	assert.Equal(t, "idle", runtime.PriorityIdle.String())
}

// Setters may be called from goroutines other than the one driving the
// tree. The enqueue is serialized against the driver, a contending sync
// setter backs off instead of rendering concurrently, and no update is
// lost. Run under the race detector.
func TestConcurrentSettersFromManyGoroutines(t *testing.T) {
	var (
		once sync.Once
		set  runtime.Setter[int]
	)
	counter := func(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		n, s := runtime.UseState(ctx, 0)
		once.Do(func() { set = s })
		return vdom.H("span", nil, n)
	}

	host, root := mustMount(t, vdom.H(counter, nil))

	const workers, perWorker = 4, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				set.Update(func(n int) int { return n + 1 })
			}
		}()
	}
	for i := 0; i < perWorker; i++ {
		require.NoError(t, root.FlushAll())
	}
	wg.Wait()

	require.NoError(t, root.FlushAll())
	assert.Equal(t, `<span>200</span>`, host.String())
}
