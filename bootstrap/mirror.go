package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	jsonv2 "github.com/go-json-experiment/json"

	"github.com/fulldump/replica/configuration"
	"github.com/fulldump/replica/livequery"
	"github.com/fulldump/replica/remote/rest"
	"github.com/fulldump/replica/service"
)

// Mirror keeps a live query over an upstream service and writes the visible
// records to w every time they change.
func Mirror(c *configuration.Configuration, w io.Writer) (start, stop func()) {

	ctx, cancel := context.WithCancel(context.Background())

	q := map[string]any{}
	if c.WatchQuery != "" {
		if err := jsonv2.Unmarshal([]byte(c.WatchQuery), &q); err != nil {
			log.Println("ERROR: watch query:", err.Error())
			q = map[string]any{}
		}
	}

	client := rest.New(rest.Options{
		Base:      c.Upstream,
		Service:   c.Watch,
		ApiKey:    c.ApiKey,
		ApiSecret: c.ApiSecret,
	})

	s := service.New(client, service.Options{
		IdField: c.IdField,
	})

	find := livequery.NewFind(ctx, s, q, livequery.Options{
		PaginateOn: livequery.PaginateOnServer,
		Limit:      c.PaginateDefault,
		Immediate:  true,
		Watch:      true,
	})

	printMutex := &sync.Mutex{}
	find.OnChange(func() {
		printMutex.Lock()
		defer printMutex.Unlock()
		printPage(w, find)
	})

	stop = func() {
		cancel()
	}

	start = func() {
		log.Printf("mirroring '%s' from %s\n", c.Watch, c.Upstream)
		err := client.Listen(ctx)
		if err != nil {
			fmt.Println(err.Error())
		}
		find.Close()
		s.Close()
	}

	return
}

func printPage(w io.Writer, find *livequery.Find) {

	if err := find.Error(); err != nil {
		fmt.Fprintln(w, "ERROR:", err.Error())
		return
	}

	page := find.PageData()
	fmt.Fprintf(w, "--- page %d/%d (%d total)\n", find.CurrentPage(), find.PageCount(), page.Total)
	for _, r := range find.Data() {
		line, err := jsonv2.Marshal(r.Fields(), jsonv2.Deterministic(true))
		if err != nil {
			continue
		}
		fmt.Fprintln(w, string(line))
	}
}
