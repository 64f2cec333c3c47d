package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/planly/planly/internal/seedtool"
)

const runTimeout = 5 * time.Minute

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8080", "Base URL of the service")
		users   = flag.Int("users", 25, "Number of synthetic users to seed")
		week    = flag.String("week", "", "Target week (YYYY-MM-DD), empty for the current week")
		workers = flag.Int("workers", 4, "Number of concurrent submitters")
		timeout = flag.Duration("timeout", 10*time.Second, "HTTP request timeout")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "RNG seed")
		token   = flag.String("token", "", "Bearer token, if the service requires auth")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	res, err := seedtool.Run(ctx, seedtool.Config{
		BaseURL: *baseURL,
		Users:   *users,
		Week:    *week,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		Token:   *token,
	})
	if err != nil {
		os.Stderr.WriteString("seed run failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("seeded %d goals (%d failed) in %s\n", res.Submitted, res.Failed, res.Elapsed.Round(time.Millisecond))
}
