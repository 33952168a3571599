package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	users       int
	amount      string
)

// Metrics
var (
	totalRequests uint64
	success201    uint64 // Recorded
	fail422       uint64 // Insufficient balance
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
	flag.IntVar(&users, "users", 1000, "Number of seeded users (ledgerctl seed -n)")
	flag.StringVar(&amount, "amount", "0.01", "Amount spent per request")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// worker spends from seeded users until the duration elapses. Against a
// correct ledger the number of 201s per user never exceeds its opening
// balance divided by amount.
func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		payload := map[string]interface{}{
			"email":  pickUser(),
			"amount": amount,
			"notes":  "benchmark",
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/transactions/out", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&success201, 1)
		case 422:
			atomic.AddUint64(&fail422, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func pickUser() string {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic goes to the first two users
		if rand.Float32() < 0.90 {
			return fmt.Sprintf("bench-%04d@example.com", rand.Intn(2)+1)
		}
	}
	return fmt.Sprintf("bench-%04d@example.com", rand.Intn(users)+1)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s201 := atomic.LoadUint64(&success201)
	f422 := atomic.LoadUint64(&fail422)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	var rejectRate float64
	if total > 0 {
		rejectRate = float64(f422) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":              workload,
		"duration_sec":          d.Seconds(),
		"total_requests":        total,
		"throughput_tps":        tps,
		"success_recorded":      s201,
		"rejected_insufficient": f422,
		"reject_rate_pct":       rejectRate,
		"errors":                fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.Printf("Could not write %s: %v", filename, err)
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
