package configuration

type Configuration struct {
	HttpAddr          string `usage:"HTTP address"`
	Services          string `usage:"comma separated list of services to host"`
	IdField           string `usage:"name of the identifier field"`
	PaginateDefault   int    `usage:"default page size, 0 disables pagination"`
	PaginateMax       int    `usage:"max page size"`
	ApiKey            string `usage:"api key, empty disables authentication"`
	ApiSecret         string `usage:"api secret"`
	EnableCompression bool   `usage:"enable http compression (gzip)"`
	Upstream          string `usage:"server to mirror, runs as a client when set"`
	Watch             string `usage:"service to mirror from upstream"`
	WatchQuery        string `usage:"JSON query of the mirrored live query"`
	Version           bool   `usage:"show version and exit"`
	ShowBanner        bool   `usage:"show big banner"`
	ShowConfig        bool   `usage:"print config"`
}

func Default() Configuration {
	return Configuration{
		HttpAddr:          "127.0.0.1:8080",
		Services:          "",
		IdField:           "id",
		PaginateDefault:   10,
		PaginateMax:       50,
		EnableCompression: true,
		WatchQuery:        "{}",
		ShowBanner:        true,
	}
}
