package main

// @title           Sercha Wiki API
// @version         1.0
// @description     Multilingual search over wiki pages, attachments and objects. Sercha Wiki indexes wiki content into bleve or Vespa and answers queries with visibility-filtered results.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-wiki/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT or service API key. Format: "Bearer {token}"

import (
	"fmt"
	"os"

	_ "github.com/custodia-labs/sercha-wiki/docs"
	"github.com/custodia-labs/sercha-wiki/internal/cli"
)

var version = "dev"

func main() {
	cli.Version = version
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
