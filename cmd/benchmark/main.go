package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/renderparty/memhost"
	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	flag.Parse()

	f, err := os.Create("default.pgo")
	if err != nil {
		log.Fatal(err)
	}
	pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	log.Printf("warming up")

	benchmarkMount(true)
	benchmarkUpdate(true)
	benchmarkKeyedShuffle(true)
}

var (
	ww    = []int{1, 10, 100}
	dd    = []int{1, 5, 10}
	iters = 100
)

// grid builds a w-wide tree of d-deep host columns, every leaf showing
// the same label so a label change touches every leaf.
func grid(w, d int, label string) *vdom.Descriptor {
	column := func(depth int) *vdom.Descriptor {
		node := vdom.H("span", nil, label)
		for j := 0; j < depth; j++ {
			node = vdom.H("div", nil, node)
		}
		return node
	}
	kids := make([]any, 0, w)
	for i := 0; i < w; i++ {
		kids = append(kids, vdom.H("section", vdom.Props{"key": i}, column(d)))
	}
	return vdom.H("main", nil, kids...)
}

func benchmarkMount(shouldRender bool) {

	tbl := table.NewWriter()
	tbl.SetTitle("Mount")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, d := range dd {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			for i := 0; i < iters; i++ {
				host := memhost.New()
				start := time.Now()
				if _, err := runtime.Mount(host, host.Container(), grid(w, d, "x")); err != nil {
					log.Panic(err)
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("mount: %d * %d", w, d),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

func benchmarkUpdate(shouldRender bool) {

	tbl := table.NewWriter()
	tbl.SetTitle("Update Propagation")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, w := range ww {
		for _, d := range dd {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			host := memhost.New()
			root, err := runtime.Mount(host, host.Container(), grid(w, d, "0"))
			if err != nil {
				log.Panic(err)
			}

			for i := 0; i < iters; i++ {
				start := time.Now()
				root.Update(grid(w, d, fmt.Sprint(i)))
				if err := root.FlushAll(); err != nil {
					log.Panic(err)
				}
				tach.AddTime(time.Since(start))
			}

			calc := tach.Calc()
			tbl.AppendRows([]table.Row{
				{
					fmt.Sprintf("update: %d * %d", w, d),
					calc.Time.Avg,
					calc.Time.Min,
					calc.Time.P75,
					calc.Time.P99,
					calc.Time.Max,
				},
			})
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

func benchmarkKeyedShuffle(shouldRender bool) {

	tbl := table.NewWriter()
	tbl.SetTitle("Keyed Shuffle")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{10, 100, 1_000} {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		rows := func() *vdom.Descriptor {
			kids := make([]any, n)
			for i, id := range order {
				kids[i] = vdom.H("li", vdom.Props{"key": id}, fmt.Sprintf("row %d", id))
			}
			return vdom.H("ul", nil, kids...)
		}

		host := memhost.New()
		root, err := runtime.Mount(host, host.Container(), rows())
		if err != nil {
			log.Panic(err)
		}

		for i := 0; i < iters; i++ {
			rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
			start := time.Now()
			root.Update(rows())
			if err := root.FlushAll(); err != nil {
				log.Panic(err)
			}
			tach.AddTime(time.Since(start))
		}

		calc := tach.Calc()
		tbl.AppendRows([]table.Row{
			{
				fmt.Sprintf("shuffle: %d rows", n),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			},
		})
	}

	if shouldRender {
		tbl.Render()
	}
}
