// Package seedtool generates synthetic weekly goals and loads them into a
// running service over HTTP. Used for demos and load checks.
package seedtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config controls one seed run.
type Config struct {
	BaseURL string
	Users   int
	Week    string // YYYY-MM-DD; empty means current week
	Workers int
	Timeout time.Duration
	Seed    int64
	Token   string // optional bearer token
}

// itemPayload mirrors the PUT /goal item schema.
type itemPayload struct {
	Title         string `json:"title"`
	TargetMinutes int    `json:"target_minutes"`
	ActualMinutes int    `json:"actual_minutes"`
	IsCompleted   bool   `json:"is_completed"`
	IsUnplanned   bool   `json:"is_unplanned"`
}

type goalPayload struct {
	UserID string        `json:"user_id"`
	Week   string        `json:"week,omitempty"`
	Items  []itemPayload `json:"items"`
}

// Result summarizes a seed run.
type Result struct {
	Submitted int
	Failed    int
	Elapsed   time.Duration
}

var titles = []string{
	"code review backlog",
	"sprint feature work",
	"incident follow-up",
	"documentation pass",
	"test hardening",
	"dependency upgrades",
	"design review",
	"onboarding support",
}

// Run generates one goal per user and submits them concurrently.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Users < 1 {
		return nil, fmt.Errorf("users must be positive, got %d", cfg.Users)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	payloads := make([]goalPayload, cfg.Users)
	for i := range payloads {
		payloads[i] = generate(rng, cfg.Week)
	}

	client := &http.Client{Timeout: cfg.Timeout}
	jobs := make(chan goalPayload)
	var wg sync.WaitGroup
	var mu sync.Mutex
	res := &Result{}
	start := time.Now()

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				err := submit(ctx, client, cfg, p)
				mu.Lock()
				if err != nil {
					res.Failed++
				} else {
					res.Submitted++
				}
				mu.Unlock()
			}
		}()
	}

	for _, p := range payloads {
		select {
		case jobs <- p:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return res, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	res.Elapsed = time.Since(start)
	return res, nil
}

func generate(rng *rand.Rand, week string) goalPayload {
	p := goalPayload{
		UserID: "seed-" + uuid.NewString()[:8],
		Week:   week,
	}
	// Plan 3-6 items summing well under the weekly budget.
	n := 3 + rng.Intn(4)
	for i := 0; i < n; i++ {
		target := 120 + rng.Intn(360)
		actual := int(float64(target) * (0.5 + rng.Float64()*0.7))
		p.Items = append(p.Items, itemPayload{
			Title:         titles[rng.Intn(len(titles))],
			TargetMinutes: target,
			ActualMinutes: actual,
			IsCompleted:   rng.Float64() < 0.7,
		})
	}
	if rng.Float64() < 0.4 {
		p.Items = append(p.Items, itemPayload{
			Title:         "unplanned firefighting",
			ActualMinutes: 30 + rng.Intn(240),
			IsUnplanned:   true,
		})
	}
	return p
}

func submit(ctx context.Context, client *http.Client, cfg Config, p goalPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode goal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cfg.BaseURL+"/goal", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("submit goal: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("submit goal for %s: status %d", p.UserID, resp.StatusCode)
	}
	return nil
}
