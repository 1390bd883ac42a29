package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fulldump/box"

	"github.com/fulldump/replica/api"
	"github.com/fulldump/replica/configuration"
	"github.com/fulldump/replica/database"
	"github.com/fulldump/replica/remote/memory"
)

var VERSION = "dev"

// Bootstrap wires the binary. With an upstream configured it mirrors a
// remote service, otherwise it serves the configured services over HTTP.
func Bootstrap(c *configuration.Configuration) (start, stop func()) {
	if c.Upstream != "" {
		start, stop = Mirror(c, os.Stdout)
	} else {
		start, stop = Server(c)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for {
			sig := <-signalChan
			fmt.Println("Signal received", sig.String())
			stop()
		}
	}()

	return
}

func splitServices(s string) []string {
	services := []string{}
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			services = append(services, name)
		}
	}
	return services
}

// NewDatabase builds the database described by c.
func NewDatabase(c *configuration.Configuration) *database.Database {
	return database.NewDatabase(&database.Config{
		Services: splitServices(c.Services),
		IdField:  c.IdField,
		Paginate: memory.Paginate{
			Default: c.PaginateDefault,
			Max:     c.PaginateMax,
		},
	})
}

// NewHandler builds the api for db with the usual interceptors.
func NewHandler(c *configuration.Configuration, db *database.Database) http.Handler {

	b := api.Build(db, VERSION, c.ApiKey, c.ApiSecret)
	if c.EnableCompression {
		b.WithInterceptors(api.Compression)
	}
	b.WithInterceptors(
		api.AccessLog(log.New(os.Stdout, "ACCESS: ", log.Lshortfile)),
		api.InterceptorUnavailable(db),
		api.RecoverFromPanic,
		api.PrettyErrorInterceptor,
	)

	return box.Box2Http(b)
}

func Server(c *configuration.Configuration) (start, stop func()) {

	db := NewDatabase(c)

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: NewHandler(c, db),
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		log.Println("ERROR:", err.Error())
		os.Exit(-1)
	}
	log.Println("listening on", c.HttpAddr)

	stop = func() {
		db.Stop()
		s.Shutdown(context.Background())
	}

	start = func() {

		wg := &sync.WaitGroup{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Start()
			if err != nil {
				fmt.Println(err.Error())
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Serve(ln)
			if err != nil && err != http.ErrServerClosed {
				fmt.Println(err.Error())
			}
		}()

		wg.Wait()
	}

	return
}
