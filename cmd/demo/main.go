package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/renderparty/htmlhost"
	"github.com/delaneyj/renderparty/memhost"
	"github.com/delaneyj/renderparty/runtime"
	"github.com/delaneyj/renderparty/vdom"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	itemCountKey = "items"
	strictKey    = "strict"
)

func main() {
	cmd := &cli.Command{
		Name:  "demo",
		Usage: "Drive the reconciler against the in-memory and HTML hosts",
		Commands: []*cli.Command{
			{
				Name:  "trace",
				Usage: "Run a scripted session over the recording host and dump the mutation log",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  itemCountKey,
						Usage: "Number of list items to mount",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  strictKey,
						Usage: "Render every component twice per pass",
					},
				},
				Action: trace,
			},
			{
				Name:   "html",
				Usage:  "Render a page through the static HTML host",
				Action: html,
			},
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type todo struct {
	id    int
	label string
	done  bool
}

func todoApp(ctx *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
	todos := props["todos"].([]todo)

	items := make([]any, 0, len(todos))
	for _, item := range todos {
		cls := "open"
		if item.done {
			cls = "done"
		}
		items = append(items, vdom.H("li",
			vdom.Props{"key": item.id, "class": cls},
			item.label,
		))
	}

	return vdom.H("div", vdom.Props{"id": "app"},
		vdom.H("h1", nil, fmt.Sprintf("%d todos", len(todos))),
		vdom.H("ul", nil, items...),
	)
}

func trace(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("trace started")
	defer func() {
		log.Printf("trace finished in %v", time.Since(start))
	}()

	n := int(cmd.Uint(itemCountKey))
	initial := make([]todo, 0, n)
	for i := 0; i < n; i++ {
		initial = append(initial, todo{id: i, label: fmt.Sprintf("task %d", i)})
	}

	host := memhost.New()
	var opts []runtime.Option
	if cmd.Bool(strictKey) {
		opts = append(opts, runtime.WithStrictRender())
	}

	root, err := runtime.Mount(host, host.Container(),
		vdom.H(todoApp, vdom.Props{"todos": initial}), opts...)
	if err != nil {
		return err
	}
	log.Printf("mounted %s items: %s", humanize.Comma(int64(n)), host)
	host.ResetOps()

	// rotate the last item to the front and mark it done; the keyed
	// diff moves one row and touches only the changed attributes
	rotated := append([]todo{initial[n-1]}, initial[:n-1]...)
	rotated[0].done = true
	root.Update(vdom.H(todoApp, vdom.Props{"todos": rotated}))
	if err := root.FlushAll(); err != nil {
		return err
	}

	dumpOps(host)
	return nil
}

func dumpOps(host *memhost.Adapter) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "op", "detail"})
	for i, op := range host.Ops {
		table.Append([]string{fmt.Sprint(i), op.Kind, op.Detail})
	}
	table.Render()

	counts := host.OpCounts()
	total := 0
	for _, c := range counts {
		total += c
	}
	log.Printf("%s host mutations total", humanize.Comma(int64(total)))
}

func html(ctx context.Context, cmd *cli.Command) error {
	host := htmlhost.New()
	page := func(c *runtime.Ctx, props vdom.Props) *vdom.Descriptor {
		return vdom.H("html", nil,
			vdom.H("body", vdom.Props{"class": "demo"},
				vdom.H("h1", nil, "renderparty"),
				vdom.H("p", nil, "one reconciler, many hosts"),
			),
		)
	}
	if _, err := runtime.Mount(host, host.Container(), vdom.H(page, nil)); err != nil {
		return err
	}
	fmt.Println(host.HTML())
	return nil
}
