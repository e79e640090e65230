package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"PaperSieve/internal/models"
	"PaperSieve/pkg/retry"
)

// UserAgent 出版商的 feed 对默认 Go UA 不太友好
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// StatusError 非 2xx 响应；429 和 5xx 视为可重试
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP error: %d (%s)", e.Code, e.URL) }

func (e *StatusError) Is(target error) bool {
	return target == models.ErrTransient && (e.Code == http.StatusTooManyRequests || e.Code >= 500)
}

// Transient 网络层错误归类为可重试
func Transient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", models.ErrTransient, err)
	}
	return err
}

// Do 发送请求并读取完整响应体，不做重试
func Do(client *http.Client, req *http.Request) ([]byte, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, Transient(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.Redacted()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("failed to read response: %w", err))
	}
	return body, nil
}

// RetryConfig 平台请求默认重试 3 次，指数退避从 1s 开始
var RetryConfig = retry.Config{
	MaxAttempts:     3,
	InitialDelay:    time.Second,
	MaxDelay:        8 * time.Second,
	Multiplier:      2,
	RetryableErrors: []error{models.ErrTransient},
}

// Get GET 请求，可重试错误按 RetryConfig 重试
func Get(ctx context.Context, client *http.Client, url string, header http.Header) ([]byte, error) {
	cfg := RetryConfig
	cfg.Name = "http"
	return retry.DoWithResult(ctx, cfg, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return Do(client, req)
	})
}
