// Command cronbeat appends a heartbeat timestamp under the directory it is
// installed in. It takes no arguments and exits 0 on success, 1 otherwise.
//
//	*/5 * * * * /home/site/public_html/cronbeat
package main

import (
	"fmt"
	"os"

	"github.com/edvin/cronbeat/internal/config"
	"github.com/edvin/cronbeat/internal/heartbeat"
	"github.com/edvin/cronbeat/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL ERROR: failed to load config: %v\n", err)
		return 1
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cronbeat"
	}

	logger := logging.NewLogger(cfg)

	base, err := heartbeat.InstallDir()
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve install directory")
		fmt.Printf("FATAL ERROR: Fatal error in cron job: %v\n", err)
		return 1
	}

	out := heartbeat.NewWriter(logger, heartbeat.NewPaths(base), nil).Run()
	fmt.Println(out.Message)
	return out.ExitCode()
}
