// Package qa is the optional question-answering collaborator: given a
// clarifying question and the hidden target structure, it returns a
// natural-language answer. When no QA endpoint is configured, the evaluator
// falls back to eval.FallbackAnswer instead.
package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type answerRequest struct {
	Question        string `json:"question"`
	TargetStructure string `json:"target_structure"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Answer posts the question to the QA endpoint. Failures propagate to the
// caller; the run does not retry.
func (c *Client) Answer(ctx context.Context, question, targetStructure string) (string, error) {
	buf, err := json.Marshal(answerRequest{Question: question, TargetStructure: targetStructure})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("qa endpoint status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ar answerResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", fmt.Errorf("qa endpoint: malformed response: %w", err)
	}
	return ar.Answer, nil
}
