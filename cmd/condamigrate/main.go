// Command condamigrate converts Pipfile.lock projects into conda environment
// files and manages the local conda query cache.
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(Execute(context.Background()))
}
