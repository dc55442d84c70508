package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MaxTags bounds the tag list produced from one caption.
const MaxTags = 6

var (
	wordPattern = regexp.MustCompile(`[a-z]+`)
	stopwords   = map[string]bool{
		"a": true, "an": true, "the": true, "of": true, "with": true, "and": true,
		"in": true, "on": true, "at": true, "for": true, "to": true,
	}
)

// Tagger turns image bytes into a short tag list.
type Tagger interface {
	Tags(ctx context.Context, filename string, data []byte) ([]string, error)
}

type Client struct {
	baseURL string
	client  *http.Client
}

type tagsResponse struct {
	Tags    []string `json:"tags"`
	Caption string   `json:"caption"`
	Error   string   `json:"error"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Tags posts the image as multipart field "file" to /image-to-tags.
func (c *Client) Tags(ctx context.Context, filename string, data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file, size is 0 bytes")
	}

	createForm := func() (*bytes.Buffer, string, error) {
		formBuf := &bytes.Buffer{}
		writer := multipart.NewWriter(formBuf)

		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("failed to copy file: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to close writer: %w", err)
		}
		return formBuf, writer.FormDataContentType(), nil
	}

	formBuf, contentType, err := createForm()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image-to-tags", formBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Needed for HTTP/2 retries.
	req.GetBody = func() (io.ReadCloser, error) {
		newForm, _, err := createForm()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(newForm), nil
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tagger returned non-OK status: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("tagger returned error: %s", out.Error)
	}

	if len(out.Tags) == 0 && out.Caption != "" {
		return CaptionToTags(out.Caption), nil
	}
	return CaptionToTags(strings.Join(out.Tags, " ")), nil
}

// CaptionToTags lowercases a caption, keeps alphabetic words outside the stopword
// set, dedupes, sorts and returns at most MaxTags of them.
func CaptionToTags(caption string) []string {
	words := wordPattern.FindAllString(strings.ToLower(caption), -1)
	seen := make(map[string]bool, len(words))
	tags := make([]string, 0, len(words))
	for _, w := range words {
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tags = append(tags, w)
	}
	sort.Strings(tags)
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	return tags
}
