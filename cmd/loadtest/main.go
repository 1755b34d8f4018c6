package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/interview-coach/internal/auth"
	"github.com/hubenschmidt/interview-coach/internal/env"
)

func main() {
	gateway := flag.String("gateway", "ws://gateway:8000/ws/interview", "gateway WebSocket URL")
	concurrency := flag.Int("concurrency", 10, "number of concurrent callers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	hold := flag.Duration("hold", 5*time.Second, "how long each call stays active before stopping")
	mode := flag.String("mode", "interview", "call mode (interview|generate)")
	interviewID := flag.String("interview", "", "interview id for interview mode")
	userID := flag.String("user", "", "user id to mint the session cookie for")
	secret := flag.String("session-secret", env.Str("SESSION_SECRET", ""), "gateway session signing key")
	flag.Parse()

	if *userID == "" || (*mode == "interview" && *interviewID == "") {
		fmt.Fprintln(os.Stderr, "usage: loadtest --user <uid> --interview <id> [--mode interview|generate]")
		os.Exit(1)
	}

	sessions := auth.NewSessions(*secret, false)
	value, err := sessions.Issue(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue session:", err)
		os.Exit(1)
	}
	header := http.Header{}
	header.Set("Cookie", sessions.Cookie(value).String())

	meta := callMetadata{Type: *mode, InterviewID: *interviewID}

	fmt.Printf("Load test: %d concurrent calls for %s\n", *concurrency, *duration)
	fmt.Printf("Gateway: %s | Mode: %s | Hold: %s\n\n", *gateway, *mode, *hold)

	var mu sync.Mutex
	var results []callResult
	var wg sync.WaitGroup

	deadline := time.Now().Add(*duration)

	for range *concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for time.Now().Before(deadline) {
				r := runCall(*gateway, header, meta, *hold)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	printSummary(results)
}

type callMetadata struct {
	Type        string `json:"type"`
	InterviewID string `json:"interviewId,omitempty"`
}

type callEvent struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Path   string `json:"path"`
}

type callResult struct {
	success    bool
	rejected   bool
	dialMs     float64
	activeMs   float64
	redirectMs float64
	err        string
}

// runCall opens one call socket, starts the call, holds it and stops it,
// timing the socket upgrade, the move to ACTIVE and the post-call redirect.
func runCall(gateway string, header http.Header, meta callMetadata, hold time.Duration) callResult {
	start := time.Now()
	conn, resp, err := websocket.DefaultDialer.Dial(gateway, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusServiceUnavailable {
			return callResult{rejected: true, err: "at capacity"}
		}
		return callResult{err: fmt.Sprintf("dial: %v", err)}
	}
	defer conn.Close()
	dialMs := msSince(start)

	if err = conn.WriteJSON(meta); err != nil {
		return callResult{err: fmt.Sprintf("send meta: %v", err)}
	}
	if _, err = waitFor(conn, 10*time.Second, func(ev callEvent) bool { return ev.Type == "status" }); err != nil {
		return callResult{err: err.Error()}
	}

	started := time.Now()
	if err = conn.WriteJSON(map[string]string{"action": "start"}); err != nil {
		return callResult{err: fmt.Sprintf("send start: %v", err)}
	}
	if _, err = waitFor(conn, 30*time.Second, func(ev callEvent) bool { return ev.Status == "ACTIVE" }); err != nil {
		return callResult{err: err.Error()}
	}
	activeMs := msSince(started)

	time.Sleep(hold)

	stopped := time.Now()
	if err = conn.WriteJSON(map[string]string{"action": "stop"}); err != nil {
		return callResult{err: fmt.Sprintf("send stop: %v", err)}
	}
	if _, err = waitFor(conn, 3*time.Minute, func(ev callEvent) bool { return ev.Type == "redirect" }); err != nil {
		return callResult{err: err.Error()}
	}

	return callResult{
		success:    true,
		dialMs:     dialMs,
		activeMs:   activeMs,
		redirectMs: msSince(stopped),
	}
}

func waitFor(conn *websocket.Conn, timeout time.Duration, match func(callEvent) bool) (callEvent, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var ev callEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return callEvent{}, fmt.Errorf("read: %w", err)
		}
		if ev.Type == "error" && ev.Text != "" {
			return callEvent{}, errors.New(ev.Text)
		}
		if match(ev) {
			return ev, nil
		}
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func printSummary(results []callResult) {
	var succeeded, failed, rejected int
	var dialAll, activeAll, redirectAll []float64
	errs := map[string]int{}

	for _, r := range results {
		switch {
		case r.success:
			succeeded++
			dialAll = append(dialAll, r.dialMs)
			activeAll = append(activeAll, r.activeMs)
			redirectAll = append(redirectAll, r.redirectMs)
		case r.rejected:
			rejected++
		default:
			failed++
			errs[r.err]++
		}
	}

	fmt.Printf("\n=== Load Test Results ===\n")
	fmt.Printf("Calls completed: %d\n", succeeded)
	fmt.Printf("Calls rejected:  %d\n", rejected)
	fmt.Printf("Calls failed:    %d\n", failed)
	for msg, n := range errs {
		fmt.Printf("  %4d x %s\n", n, msg)
	}

	if len(dialAll) == 0 {
		fmt.Println("No successful calls to report metrics")
		return
	}

	fmt.Printf("\n%-9s %8s %8s %8s\n", "Stage", "p50", "p95", "p99")
	fmt.Printf("%-9s %8.0fms %8.0fms %8.0fms\n", "Upgrade", percentile(dialAll, 50), percentile(dialAll, 95), percentile(dialAll, 99))
	fmt.Printf("%-9s %8.0fms %8.0fms %8.0fms\n", "Active", percentile(activeAll, 50), percentile(activeAll, 95), percentile(activeAll, 99))
	fmt.Printf("%-9s %8.0fms %8.0fms %8.0fms\n", "Redirect", percentile(redirectAll, 50), percentile(redirectAll, 95), percentile(redirectAll, 99))
}

func percentile(data []float64, pct float64) float64 {
	sort.Float64s(data)
	idx := int(math.Ceil(pct/100*float64(len(data)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(data) {
		idx = len(data) - 1
	}
	return data[idx]
}
