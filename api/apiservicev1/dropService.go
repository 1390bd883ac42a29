package apiservicev1

import (
	"context"

	"github.com/fulldump/box"
)

func dropService(ctx context.Context) error {
	return GetDatabase(ctx).DropService(box.GetUrlParameter(ctx, "serviceName"))
}
