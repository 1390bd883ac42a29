package apiservicev1

import (
	"github.com/fulldump/box"
)

func BuildV1Service(v1 *box.R) *box.R {

	services := v1.Resource("/services").
		WithActions(
			box.Get(listServices),
			box.Post(createService),
		)

	v1.Resource("/services/{serviceName}").
		WithActions(
			box.Get(getService),
			box.ActionPost(find).WithName("find"),
			box.ActionPost(get).WithName("get"),
			box.ActionPost(create).WithName("create"),
			box.ActionPost(update).WithName("update"),
			box.ActionPost(patch).WithName("patch"),
			box.ActionPost(remove).WithName("remove"),
			box.ActionPost(dropService).WithName("dropService"),
		)

	v1.Resource("/services/{serviceName}/events").
		WithActions(
			box.Get(events),
		)

	return services
}
