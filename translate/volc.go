package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultVolcEndpoint is the Volcengine browser-extension translation API.
const DefaultVolcEndpoint = "https://translate.volcengine.com/crx/translate/v1"

// DefaultVolcDelay is the pause before each file's batch of requests; the
// endpoint throttles aggressively without it.
const DefaultVolcDelay = 3 * time.Second

// Volc posts each string to the Volcengine translation endpoint.
type Volc struct {
	Endpoint       string
	TargetLanguage string
	Delay          time.Duration
	Client         *http.Client
}

// NewVolc returns a Volcengine backend with the default endpoint and delay.
func NewVolc(target string) *Volc {
	return &Volc{
		Endpoint:       DefaultVolcEndpoint,
		TargetLanguage: target,
		Delay:          DefaultVolcDelay,
		Client:         makeHTTPClient("", 0),
	}
}

type volcRequest struct {
	TargetLanguage string `json:"target_language"`
	Text           string `json:"text"`
}

type volcResponse struct {
	Translation string `json:"translation"`
}

func (v *Volc) Name() string { return BackendVolc }

// BatchDelay implements BatchDelayer.
func (v *Volc) BatchDelay() time.Duration { return v.Delay }

func (v *Volc) Translate(ctx context.Context, text string) (string, error) {
	out, err := v.do(ctx, text)
	if err != nil {
		return "", &Error{Backend: v.Name(), Text: text, Err: err}
	}
	return out, nil
}

func (v *Volc) do(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(volcRequest{TargetLanguage: v.TargetLanguage, Text: text})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result volcResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if result.Translation == "" {
		return "", errors.New("response has no translation field")
	}
	return result.Translation, nil
}
