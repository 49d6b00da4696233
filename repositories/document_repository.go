package repositories

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bracket-sync/models"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 8 << 20

// RemoteDocument is a decoded competition together with the version it was read at.
type RemoteDocument struct {
	Competition *models.Competition
	Token       models.VersionToken
	Raw         []byte
}

type DocumentRepository interface {
	Fetch(ctx context.Context, credential, path string, fresh bool) (*RemoteDocument, error)
	Store(ctx context.Context, credential, path string, content []byte, message string, token models.VersionToken) (models.VersionToken, error)
	Identity(ctx context.Context, credential string) (string, error)
}

type GitHubConfig struct {
	BaseURL   string
	Owner     string
	Repo      string
	Retry     RetryPolicy
	RateLimit rate.Limit
	Burst     int
	Timeout   time.Duration
}

type GitHubDocumentRepository struct {
	client  *http.Client
	baseURL string
	owner   string
	repo    string
	retry   RetryPolicy
	limiter *rate.Limiter
	sleeper Sleeper
	clock   Clock
	logger  *slog.Logger
}

type GitHubOption func(*GitHubDocumentRepository)

func WithHTTPClient(c *http.Client) GitHubOption {
	return func(r *GitHubDocumentRepository) { r.client = c }
}

func WithSleeper(s Sleeper) GitHubOption {
	return func(r *GitHubDocumentRepository) { r.sleeper = s }
}

func WithClock(c Clock) GitHubOption {
	return func(r *GitHubDocumentRepository) { r.clock = c }
}

func NewGitHubDocumentRepository(cfg GitHubConfig, logger *slog.Logger, opts ...GitHubOption) *GitHubDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy
	}
	limit, burst := cfg.RateLimit, cfg.Burst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := &GitHubDocumentRepository{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		retry:   retry,
		limiter: rate.NewLimiter(limit, burst),
		sleeper: ContextSleeper{},
		clock:   SystemClock{},
		logger:  logger.With(slog.String("component", "github_documents")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type contentsResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

type putContentsResponse struct {
	Content *struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (r *GitHubDocumentRepository) contentsURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		r.baseURL, url.PathEscape(r.owner), url.PathEscape(r.repo), strings.Join(segments, "/"))
}

// Fetch reads and decodes one competition document. A fresh read bypasses
// intermediate HTTP caches. Any decode failure is returned as ErrMalformedDocument.
func (r *GitHubDocumentRepository) Fetch(ctx context.Context, credential, path string, fresh bool) (*RemoteDocument, error) {
	target := r.contentsURL(path)
	if fresh {
		target += "?t=" + strconv.FormatInt(r.clock.Now().UnixMilli(), 10)
	}

	body, err := r.do(ctx, credential, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	var resp contentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: contents envelope: %v", ErrMalformedDocument, err)
	}
	if resp.Encoding != "" && resp.Encoding != "base64" {
		return nil, fmt.Errorf("%w: unsupported encoding %q", ErrMalformedDocument, resp.Encoding)
	}
	raw, err := decodeContent(resp.Content)
	if err != nil {
		return nil, err
	}
	doc, err := models.DecodeCompetition(raw)
	if err != nil {
		return nil, err
	}

	return &RemoteDocument{Competition: doc, Token: models.VersionToken(resp.SHA), Raw: raw}, nil
}

// decodeContent strips the line wrapping the contents API applies to base64 blobs.
func decodeContent(encoded string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, encoded)
	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: content blob: %v", ErrMalformedDocument, err)
	}
	return raw, nil
}

// Store writes content at path, presenting the version token last observed.
// It returns the new version token from the write response.
func (r *GitHubDocumentRepository) Store(ctx context.Context, credential, path string, content []byte, message string, token models.VersionToken) (models.VersionToken, error) {
	payload, err := json.Marshal(putContentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     string(token),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode write request: %w", err)
	}

	body, err := r.do(ctx, credential, http.MethodPut, r.contentsURL(path), payload)
	if err != nil {
		return "", err
	}

	var resp putContentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: write response: %v", ErrMalformedResponse, err)
	}
	if resp.Content == nil || resp.Content.SHA == "" {
		// Запись прошла, но sha нет: оставляем прежний токен
		r.logger.Warn("write response carried no version token, keeping the previous one", slog.String("path", path))
		return token, nil
	}
	return models.VersionToken(resp.Content.SHA), nil
}

// Identity returns the login the credential belongs to.
func (r *GitHubDocumentRepository) Identity(ctx context.Context, credential string) (string, error) {
	body, err := r.do(ctx, credential, http.MethodGet, r.baseURL+"/user", nil)
	if err != nil {
		return "", err
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("%w: identity: %v", ErrMalformedResponse, err)
	}
	return user.Login, nil
}

func (r *GitHubDocumentRepository) do(ctx context.Context, credential, method, target string, payload []byte) ([]byte, error) {
	attempts := r.retry.attempts()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := r.once(ctx, credential, method, target, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}

		if attempt < attempts-1 {
			delay := r.retry.Delay(attempt)
			r.logger.Warn("remote request failed, retrying",
				slog.String("method", method),
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", attempts),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
			if err := r.sleeper.Sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	r.logger.Error("remote request retries exhausted",
		slog.String("method", method),
		slog.Int("attempts", attempts),
		slog.Any("error", lastErr),
	)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

func (r *GitHubDocumentRepository) once(ctx context.Context, credential, method, target string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", AuthorizationHeader(credential))
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "bracket-sync")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodGet {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := newStatusError(resp.StatusCode, remoteMessage(body))
		if resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("%w: %w", ErrVersionConflict, statusErr)
		}
		return nil, statusErr
	}
	return body, nil
}

func remoteMessage(body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return ""
	}
	return msg.Message
}

// StatusOf extracts the remote HTTP status from err, or 0.
func StatusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return 0
}
