package perspective

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MikeSquared-Agency/tune/internal/scores"
)

const DefaultBaseURL = "https://commentanalyzer.googleapis.com/v1alpha1"

// ErrCircuitOpen is returned while the breaker rejects calls to the classifier.
var ErrCircuitOpen = errors.New("perspective: circuit open")

// APIError is a non-200 response from the classifier.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// unsupportedLanguage reports whether the classifier refused the text's language.
func (e *APIError) unsupportedLanguage() bool {
	return e.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "language")
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient(apiKey, baseURL string, maxFailures uint32, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxFailures == 0 {
		maxFailures = 5
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "perspective",
			MaxRequests: 5,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			// Client faults say nothing about classifier health.
			IsSuccessful: func(err error) bool {
				var apiErr *APIError
				if errors.As(err, &apiErr) {
					return apiErr.StatusCode < http.StatusInternalServerError
				}
				return err == nil
			},
		}),
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(serverURL string) {
	c.baseURL = strings.TrimRight(serverURL, "/")
}

type summaryScore struct {
	Value float64 `json:"value"`
	Type  string  `json:"type,omitempty"`
}

type attributeScore struct {
	SummaryScore summaryScore `json:"summaryScore"`
}

type comment struct {
	Text string `json:"text"`
}

type analyzeRequest struct {
	Comment             comment             `json:"comment"`
	RequestedAttributes map[string]struct{} `json:"requestedAttributes"`
	DoNotStore          bool                `json:"doNotStore"`
}

type analyzeResponse struct {
	AttributeScores map[string]attributeScore `json:"attributeScores"`
	Languages       []string                  `json:"languages"`
}

type suggestRequest struct {
	Comment         comment                   `json:"comment"`
	AttributeScores map[string]attributeScore `json:"attributeScores"`
	CommunityID     string                    `json:"communityId"`
	SessionID       string                    `json:"sessionId"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Analyze scores text on every attribute. Text in a language the classifier
// does not support yields an empty, non-nil score set.
func (c *Client) Analyze(ctx context.Context, text string) (scores.AttributeScores, error) {
	req := analyzeRequest{
		Comment:             comment{Text: text},
		RequestedAttributes: make(map[string]struct{}, len(scores.AllAttributes)),
		DoNotStore:          true,
	}
	for _, name := range scores.APIAttributeNames() {
		req.RequestedAttributes[name] = struct{}{}
	}

	var resp analyzeResponse
	err := c.post(ctx, "comments:analyze", req, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.unsupportedLanguage() {
			return scores.AttributeScores{}, nil
		}
		return nil, err
	}

	result := make(scores.AttributeScores, len(resp.AttributeScores))
	for apiName, score := range resp.AttributeScores {
		attr, err := scores.ParseAPIAttributeName(apiName)
		if err != nil {
			return nil, err
		}
		result[attr] = score.SummaryScore.Value
	}
	return result, nil
}

// Suggestion is user feedback on how a comment should have been scored.
type Suggestion struct {
	Text        string
	Attribute   scores.AttributeName
	Score       float64
	CommunityID string
	SessionID   string
}

func (s Suggestion) validate() error {
	var missing []string
	if s.Text == "" {
		missing = append(missing, "text")
	}
	if !s.Attribute.Valid() {
		missing = append(missing, "attribute")
	}
	if s.CommunityID == "" {
		missing = append(missing, "community id")
	}
	if s.SessionID == "" {
		missing = append(missing, "session id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("suggestion missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// SuggestScore submits a suggested score for a comment back to the classifier.
func (c *Client) SuggestScore(ctx context.Context, s Suggestion) error {
	if err := s.validate(); err != nil {
		return err
	}
	req := suggestRequest{
		Comment: comment{Text: s.Text},
		AttributeScores: map[string]attributeScore{
			s.Attribute.APIName(): {SummaryScore: summaryScore{Value: s.Score}},
		},
		CommunityID: s.CommunityID,
		SessionID:   s.SessionID,
	}
	return c.post(ctx, "comments:suggestscore", req, nil)
}

func (c *Client) post(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/" + method
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, endpoint, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Status = errResp.Error.Status
			apiErr.Message = errResp.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
