// Command storefront-shell drives the storefront core against a running
// storefront-api: browse the catalog, manage the cart, check out and review
// orders and quotes.
//
//	storefront-shell [--customer id] [--api url] <command> [flags] [args]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
