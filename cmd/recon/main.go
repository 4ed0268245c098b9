// Command recon finds and repairs duplicate documents, broken references
// and stale tenant data in a multi-tenant document store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/custodia-labs/recon/internal/adapters/driven/planfile"
	"github.com/custodia-labs/recon/internal/adapters/driving/cli"
	"github.com/custodia-labs/recon/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetPlanStore(planfile.NewStore())
	cli.SetWiring(cli.Wiring{
		Settings: openSettings,
		Services: openServices,
	})

	err := cli.Execute(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
