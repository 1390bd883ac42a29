package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/replica/bootstrap"
	"github.com/fulldump/replica/configuration"
)

var banner = `
 ____            _ _           
|  _ \ ___ _ __ | (_) ___ __ _ 
| |_) / _ \ '_ \| | |/ __/ _' |
|  _ <  __/ |_) | | | (_| (_| |
|_| \_\___| .__/|_|_|\___\__,_|
          |_|   version ` + bootstrap.VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	// glog registers its flags on the default set
	flag.Set("logtostderr", "true")

	if c.Version {
		fmt.Println("Version:", bootstrap.VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	start, _ := bootstrap.Bootstrap(&c)
	start()
}
