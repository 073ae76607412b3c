package main

import (
	"context"
	"log"
	"os"

	"github.com/netops-tools/invsync/pkg/api"
)

func main() {
	if err := api.Serve(context.Background(), os.Getenv("INVSYNC_CONFIG")); err != nil {
		log.Fatal(err)
	}
}
