package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status  int
	Body    string
	Err     error
	Latency time.Duration
}

type orderReq struct {
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	nOrders := flag.Int("orders", 200, "distinct orders to submit")
	concurrency := flag.Int("c", 50, "max concurrency")
	listenerWait := flag.Duration("listener-wait", 10*time.Second, "how long to wait for the listener to observe a message")
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Second}
	runID := uuid.NewString()[:8]
	failed := false

	// 1) 并发提交不同 order_id，互不影响
	fmt.Printf("start concurrent submit: orders=%d concurrency=%d run=%s\n", *nOrders, *concurrency, runID)
	results := runSubmit(client, *baseURL, runID, *nOrders, *concurrency)
	printSummary("submit", results)
	if n := countFailed(results); n > 0 {
		fmt.Printf("  submit FAILED: %d/%d orders not accepted\n", n, len(results))
		failed = true
	}

	// 2) 同一 order_id 提交两次，应以第二次为准
	fmt.Println("\nstart overwrite check")
	overwriteID := fmt.Sprintf("%s-overwrite", runID)
	for _, amount := range []float64{99.99, 12.5} {
		r := submitOnce(client, *baseURL, orderReq{OrderID: overwriteID, UserID: "user123", Amount: amount})
		if r.Err != nil || r.Status != http.StatusOK {
			fmt.Printf("  submit %s amount=%.2f failed: status=%d err=%v body=%s\n", overwriteID, amount, r.Status, r.Err, r.Body)
			failed = true
		}
	}
	amount, err := getAmount(client, *baseURL, overwriteID)
	switch {
	case err != nil:
		fmt.Println("  overwrite check err:", err)
		failed = true
	case amount != 12.5:
		fmt.Printf("  overwrite check FAILED: amount=%.2f want 12.50\n", amount)
		failed = true
	default:
		fmt.Println("  overwrite check ok")
	}

	// 3) listener 是否收到过消息
	fmt.Println("\nstart listener check")
	payload, err := latestPayload(client, *baseURL, *listenerWait)
	if err != nil {
		fmt.Println("  listener check err:", err)
		failed = true
	} else {
		fmt.Println("  listener latest payload:", payload)
	}

	if failed {
		os.Exit(1)
	}
}

func runSubmit(client *http.Client, baseURL, runID string, n, concurrency int) []Result {
	// 无缓冲的信号量会在第一次写入时死锁
	concurrency = max(concurrency, 1)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			req := orderReq{
				OrderID: fmt.Sprintf("%s-%d", runID, idx),
				UserID:  fmt.Sprintf("user-%d", idx),
				Amount:  float64(idx) + 0.99,
			}
			results[idx] = submitOnce(client, baseURL, req)
		}(i)
	}

	wg.Wait()
	return results
}

func submitOnce(client *http.Client, baseURL string, req orderReq) Result {
	b, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest(http.MethodPost, baseURL+"/orders", bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err, Latency: time.Since(start)}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body), Latency: time.Since(start)}
}

// countFailed 统计未返回 200 的请求数。
func countFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil || r.Status != http.StatusOK {
			n++
		}
	}
	return n
}

// printSummary 聚合输出不同状态码分布与延迟分位。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		latencies = append(latencies, r.Latency)
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 429, 500, 502, 504} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("  latency p50=%s p99=%s max=%s\n",
		latencies[len(latencies)/2],
		latencies[len(latencies)*99/100],
		latencies[len(latencies)-1],
	)
}

// getAmount 读取已落库订单的金额，用于校验覆盖写。
func getAmount(client *http.Client, baseURL, orderID string) (float64, error) {
	var out struct {
		Data struct {
			Amount float64 `json:"amount"`
		} `json:"data"`
	}
	if err := getJSON(client, baseURL+"/orders/"+orderID, &out); err != nil {
		return 0, err
	}
	return out.Data.Amount, nil
}

func latestPayload(client *http.Client, baseURL string, wait time.Duration) (string, error) {
	var out struct {
		Data struct {
			Payload string `json:"payload"`
		} `json:"data"`
	}
	if err := getJSON(client, fmt.Sprintf("%s/listener/latest?wait=%s", baseURL, wait), &out); err != nil {
		return "", err
	}
	return out.Data.Payload, nil
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return json.Unmarshal(b, out)
}
