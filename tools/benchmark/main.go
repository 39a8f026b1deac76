// Command benchmark drives the full sale flow against a running ledger and
// marketplace pair and reports per-step latencies: register a collectible,
// claim a token, approve the marketplace and buy the token.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mintgate/mg-ledger/internal/api/middleware"
	"github.com/mintgate/mg-ledger/internal/domain"
)

const (
	defaultLedgerURL = "http://localhost:8080"
	defaultMarketURL = "http://localhost:8081"
	// listingWait bounds how long a worker polls for the approval event to
	// reach the marketplace before buying
	listingWait  = 10 * time.Second
	pollInterval = 100 * time.Millisecond
)

type Config struct {
	LedgerURL     string
	MarketURL     string
	NftContractID string // Contract ID of the ledger under test
	Marketplace   string // Account ID of the marketplace under test
	Iterations    int    // Sale flows per worker
	Concurrency   int    // Number of concurrent workers
	Timeout       time.Duration
	OutputFile    string // Output markdown file path (optional)
	Debug         bool
}

// StepStats aggregates the latencies of one step of the flow
type StepStats struct {
	Name      string
	Latencies []time.Duration
	Failed    int
}

type flowResult struct {
	step    string
	latency time.Duration
	err     error
}

func main() {
	cfg := parseFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted, finishing started flows...")
		cancel()
	}()

	fmt.Printf("Benchmarking %s (ledger) and %s (marketplace)\n", cfg.LedgerURL, cfg.MarketURL)
	fmt.Printf("Workers: %d, iterations per worker: %d\n\n", cfg.Concurrency, cfg.Iterations)

	start := time.Now()
	results := make(chan flowResult, cfg.Concurrency*cfg.Iterations*4)

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runWorker(ctx, cfg, worker, results)
		}(w)
	}
	wg.Wait()
	close(results)
	elapsed := time.Since(start)

	stats := collectStats(results)
	printStats(stats, elapsed)

	if cfg.OutputFile != "" {
		if err := writeMarkdownReport(cfg.OutputFile, stats, elapsed); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nReport written to %s\n", cfg.OutputFile)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	defaults := &BenchmarkConfig{
		LedgerURL:     defaultLedgerURL,
		MarketURL:     defaultMarketURL,
		NftContractID: "nft.mintgate.local",
		Marketplace:   "market.mintgate.local",
	}
	if saved, err := LoadConfig(GetDefaultConfigPath()); err == nil {
		defaults = saved
	}

	flag.StringVar(&cfg.LedgerURL, "ledger", defaults.LedgerURL, "Base URL of the NFT ledger")
	flag.StringVar(&cfg.MarketURL, "market", defaults.MarketURL, "Base URL of the marketplace")
	flag.StringVar(&cfg.NftContractID, "contract", defaults.NftContractID, "Contract ID of the ledger")
	flag.StringVar(&cfg.Marketplace, "marketplace", defaults.Marketplace, "Account ID of the marketplace")
	flag.IntVar(&cfg.Iterations, "n", 10, "Sale flows per worker")
	flag.IntVar(&cfg.Concurrency, "c", 4, "Concurrent workers")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Per-request timeout")
	flag.StringVar(&cfg.OutputFile, "o", "", "Markdown report output path")
	flag.BoolVar(&cfg.Debug, "debug", false, "Print every request error")
	save := flag.Bool("save-config", false, "Save endpoints as defaults and exit")
	flag.Parse()

	if *save {
		if err := SaveConfig(GetDefaultConfigPath(), &BenchmarkConfig{
			LedgerURL:     cfg.LedgerURL,
			MarketURL:     cfg.MarketURL,
			NftContractID: cfg.NftContractID,
			Marketplace:   cfg.Marketplace,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config saved to %s\n", GetDefaultConfigPath())
		os.Exit(0)
	}
	return cfg
}

// runWorker drives cfg.Iterations full sale flows
func runWorker(ctx context.Context, cfg *Config, worker int, results chan<- flowResult) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	creator := fmt.Sprintf("creator-%d.bench", worker)
	seller := fmt.Sprintf("seller-%d.bench", worker)
	buyer := fmt.Sprintf("buyer-%d.bench", worker)

	for i := 0; i < cfg.Iterations; i++ {
		if ctx.Err() != nil {
			return
		}
		gateID := fmt.Sprintf("bench-%d-%d-%d", time.Now().Unix()%1000000, worker, i)
		runFlow(ctx, cfg, httpClient, gateID, creator, seller, buyer, results)
	}
}

// runFlow performs one register-claim-approve-buy sequence. A failed step
// aborts the rest of the flow.
func runFlow(ctx context.Context, cfg *Config, httpClient *http.Client, gateID, creator, seller, buyer string, results chan<- flowResult) {
	step := func(name string, fn func() error) bool {
		start := time.Now()
		err := fn()
		results <- flowResult{step: name, latency: time.Since(start), err: err}
		if err != nil && cfg.Debug {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		}
		return err == nil
	}

	var tokenID domain.TokenID

	ok := step("create_collectible", func() error {
		body := map[string]any{
			"gate_id": gateID,
			"supply":  1,
			"royalty": map[string]uint32{"num": 10, "den": 100},
			"title":   "benchmark drop",
		}
		return postJSON(ctx, httpClient, cfg.LedgerURL+"/api/v1/collectibles", creator, body, nil)
	})
	if !ok {
		return
	}

	ok = step("claim_token", func() error {
		var token struct {
			ID domain.TokenID `json:"token_id"`
		}
		if err := postJSON(ctx, httpClient, cfg.LedgerURL+"/api/v1/collectibles/"+gateID+"/claim", seller, nil, &token); err != nil {
			return err
		}
		tokenID = token.ID
		return nil
	})
	if !ok {
		return
	}

	ok = step("approve", func() error {
		body := map[string]any{
			"account_id": cfg.Marketplace,
			"msg":        `{"min_price":"1000"}`,
		}
		url := fmt.Sprintf("%s/api/v1/tokens/%s/approve", cfg.LedgerURL, tokenID.String())
		return postJSON(ctx, httpClient, url, seller, body, nil)
	})
	if !ok {
		return
	}

	step("buy_token", func() error {
		if err := waitForListing(ctx, httpClient, cfg, tokenID); err != nil {
			return err
		}
		url := fmt.Sprintf("%s/api/v1/tokens-for-sale/%s/%s/buy", cfg.MarketURL, cfg.NftContractID, tokenID.String())
		return postJSON(ctx, httpClient, url, buyer, map[string]any{"deposit": "2000"}, nil)
	})
}

// waitForListing polls the marketplace until the approval event has landed
func waitForListing(ctx context.Context, httpClient *http.Client, cfg *Config, tokenID domain.TokenID) error {
	deadline := time.Now().Add(listingWait)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var listings []struct {
			TokenID domain.TokenID `json:"token_id"`
		}
		if err := getJSON(ctx, httpClient, cfg.MarketURL+"/api/v1/tokens-for-sale", &listings); err == nil {
			for _, l := range listings {
				if l.TokenID == tokenID {
					return nil
				}
			}
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("token %s never listed within %s", tokenID.String(), listingWait)
}

func postJSON(ctx context.Context, httpClient *http.Client, url, account string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.AccountHeader, account)
	return doJSON(httpClient, req, out)
}

func getJSON(ctx context.Context, httpClient *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return doJSON(httpClient, req, out)
}

func doJSON(httpClient *http.Client, req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func collectStats(results <-chan flowResult) []*StepStats {
	order := []string{"create_collectible", "claim_token", "approve", "buy_token"}
	byStep := make(map[string]*StepStats, len(order))
	for _, name := range order {
		byStep[name] = &StepStats{Name: name}
	}

	for r := range results {
		stats := byStep[r.step]
		if r.err != nil {
			stats.Failed++
			continue
		}
		stats.Latencies = append(stats.Latencies, r.latency)
	}

	out := make([]*StepStats, 0, len(order))
	for _, name := range order {
		out = append(out, byStep[name])
	}
	return out
}

func printStats(stats []*StepStats, elapsed time.Duration) {
	totalOK, totalFailed := 0, 0
	fmt.Printf("%-20s %8s %8s %10s %10s %10s\n", "STEP", "OK", "FAILED", "P50", "P95", "MAX")
	fmt.Println(strings.Repeat("-", 70))
	for _, s := range stats {
		totalOK += len(s.Latencies)
		totalFailed += s.Failed
		fmt.Printf("%-20s %8d %8d %10s %10s %10s\n",
			s.Name, len(s.Latencies), s.Failed,
			formatDuration(percentile(s.Latencies, 50)),
			formatDuration(percentile(s.Latencies, 95)),
			formatDuration(percentile(s.Latencies, 100)),
		)
	}
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("Total: %d ok, %d failed (%s success) in %s, %s\n",
		totalOK, totalFailed, percentageString(totalOK, totalOK+totalFailed),
		elapsed.Round(time.Millisecond), formatRate(totalOK, elapsed))
}

func writeMarkdownReport(path string, stats []*StepStats, elapsed time.Duration) error {
	var sb strings.Builder
	sb.WriteString("# Sale flow benchmark\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC3339)))
	sb.WriteString("| Step | OK | Failed | P50 | P95 | Max | |\n")
	sb.WriteString("|------|----|--------|-----|-----|-----|--|\n")

	totalOK, totalFailed := 0, 0
	for _, s := range stats {
		totalOK += len(s.Latencies)
		totalFailed += s.Failed
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s | %s |\n",
			s.Name, len(s.Latencies), s.Failed,
			formatDuration(percentile(s.Latencies, 50)),
			formatDuration(percentile(s.Latencies, 95)),
			formatDuration(percentile(s.Latencies, 100)),
			statusEmoji(len(s.Latencies), s.Failed),
		))
	}
	sb.WriteString(fmt.Sprintf("\nTotal: %d ok, %d failed in %s (%s)\n",
		totalOK, totalFailed, elapsed.Round(time.Millisecond), formatRate(totalOK, elapsed)))

	return os.WriteFile(path, []byte(sb.String()), 0644)
}
