package api

import (
	"context"
	"net/http"

	"github.com/fulldump/box"
	"github.com/fulldump/box/boxopenapi"

	"github.com/fulldump/replica/api/apiservicev1"
	"github.com/fulldump/replica/database"
)

func Build(db *database.Database, version, apiKey, apiSecret string) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		box.SetResponseHeader("Content-Type", "application/json"),
		Authenticate(apiKey, apiSecret),
	)

	apiservicev1.BuildV1Service(v1).
		WithInterceptors(
			injectDatabase(db),
		)

	b.Resource("/v1/*").
		WithActions(box.AnyMethod(func(w http.ResponseWriter) interface{} {
			w.WriteHeader(http.StatusNotImplemented)
			return PrettyError{
				Message:     "not implemented",
				Description: "this endpoint does not exist, please check the documentation",
			}
		}))

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}))

	spec := boxopenapi.Spec(b)
	spec.Info.Title = "Replica"
	spec.Info.Description = "In memory services with realtime events, to be mirrored by replica clients."
	spec.Info.Contact = &boxopenapi.Contact{
		Url: "https://github.com/fulldump/replica/issues/new",
	}
	b.Handle("GET", "/openapi.json", func(r *http.Request) any {

		spec.Servers = []boxopenapi.Server{
			{
				Url: "https://" + r.Host,
			},
			{
				Url: "http://" + r.Host,
			},
		}

		return spec
	})

	return b
}

func injectDatabase(db *database.Database) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(apiservicev1.SetDatabase(ctx, db))
		}
	}
}
