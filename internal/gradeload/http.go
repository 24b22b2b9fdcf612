package gradeload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"

	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitEntries posts entries concurrently using a worker pool.
func submitEntries(ctx context.Context, config *Config, entries []Entry, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting entries", logger.Int("entries", len(entries)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	target := config.BaseURL + "/grades"

	var accepted, conflict, failed, submitted int64
	ch := make(chan Entry, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range ch {
				atomic.AddInt64(&submitted, 1)
				switch submitSingleEntry(ctx, client, target, e) {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
				case outcomeConflict:
					atomic.AddInt64(&conflict, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, e := range entries {
			select {
			case <-ctx.Done():
				return
			case ch <- e:
			}
		}
	}()
	wg.Wait()

	stats.EntriesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EntriesAccepted = int(atomic.LoadInt64(&accepted))
	stats.EntriesConflict = int(atomic.LoadInt64(&conflict))
	stats.EntriesFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "entry submission completed",
		logger.Int("accepted", stats.EntriesAccepted),
		logger.Int("conflict", stats.EntriesConflict),
		logger.Int("failed", stats.EntriesFailed))
}

func submitSingleEntry(ctx context.Context, client *HTTPClient, target string, e Entry) string {
	resp, err := client.Post(ctx, target, e)
	if err != nil {
		return outcomeFailed
	}
	body, err := readResponseBody(resp)
	switch {
	case err != nil:
		return outcomeFailed
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		return outcomeAccepted
	case resp.StatusCode == http.StatusConflict:
		return outcomeConflict
	default:
		logger.Get().Debug(ctx, "entry rejected",
			logger.String("student_id", e.StudentID),
			logger.Int("trimester", e.Trimester),
			logger.Int("status", resp.StatusCode),
			logger.String("body", string(body)))
		return outcomeFailed
	}
}

// fetchFinals reads the final of every student concurrently.
func fetchFinals(ctx context.Context, config *Config, students []string) (map[string]model.FinalRecord, error) {
	client := newHTTPClient(config.Timeout)

	var (
		mu       sync.Mutex
		finals   = make(map[string]model.FinalRecord, len(students))
		firstErr error
	)
	ch := make(chan string, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ch {
				fr, err := fetchFinal(ctx, client, config, id)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
				} else {
					finals[id] = fr
				}
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, id := range students {
			select {
			case <-ctx.Done():
				return
			case ch <- id:
			}
		}
	}()
	wg.Wait()

	if firstErr != nil {
		return finals, firstErr
	}
	return finals, ctx.Err()
}

func fetchFinal(ctx context.Context, client *HTTPClient, config *Config, studentID string) (model.FinalRecord, error) {
	q := url.Values{}
	q.Set("student_id", studentID)
	q.Set("discipline_id", config.DisciplineID)
	q.Set("class_id", config.ClassID)
	q.Set("academic_year", config.AcademicYear)

	resp, err := client.Get(ctx, config.BaseURL+"/grades/final?"+q.Encode())
	if err != nil {
		return model.FinalRecord{}, fmt.Errorf("final %s: %w", studentID, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return model.FinalRecord{}, fmt.Errorf("final %s: %w", studentID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.FinalRecord{}, fmt.Errorf("final %s: status %d: %s", studentID, resp.StatusCode, body)
	}
	var fr model.FinalRecord
	if err := sonic.ConfigStd.Unmarshal(body, &fr); err != nil {
		return model.FinalRecord{}, fmt.Errorf("final %s: %w", studentID, err)
	}
	return fr, nil
}
