package apiservicev1

import (
	"context"

	"github.com/fulldump/box"

	"github.com/fulldump/replica/database"
	"github.com/fulldump/replica/remote/memory"
)

const ContextDatabaseKey = "5f0c2b9e-8a31-11ef-b864-0242ac120002"

func SetDatabase(ctx context.Context, db *database.Database) context.Context {
	return context.WithValue(ctx, ContextDatabaseKey, db)
}

func GetDatabase(ctx context.Context) *database.Database {
	db, _ := ctx.Value(ContextDatabaseKey).(*database.Database)
	return db
}

// urlService resolves the {serviceName} of the request.
func urlService(ctx context.Context) (*memory.Service, error) {
	serviceName := box.GetUrlParameter(ctx, "serviceName")
	return GetDatabase(ctx).GetService(serviceName)
}
