package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Delivery variants configured on the Images account.
const (
	VariantPublic    = "public"
	VariantThumbnail = "thumbnail"
)

const defaultImagesAPI = "https://api.cloudflare.com/client/v4"

// ImageVariants stores an image once and serves it in several named sizes.
type ImageVariants interface {
	UploadImage(ctx context.Context, filename string, data []byte) (imageID string, variants map[string]string, err error)
	DeleteImage(ctx context.Context, imageID string) error
}

type ImagesConfig struct {
	AccountID   string
	Token       string
	AccountHash string
	// APIURL overrides the Cloudflare API base, e.g. for tests.
	APIURL string
}

type CloudflareImages struct {
	accountID   string
	apiToken    string
	accountHash string
	baseURL     string
	client      *http.Client
	logger      *zap.Logger
}

type cloudflareImageResponse struct {
	Success bool `json:"success"`
	Result  struct {
		ID string `json:"id"`
	} `json:"result"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func NewCloudflareImages(cfg ImagesConfig, logger *zap.Logger) *CloudflareImages {
	base := cfg.APIURL
	if base == "" {
		base = defaultImagesAPI
	}
	return &CloudflareImages{
		accountID:   cfg.AccountID,
		apiToken:    cfg.Token,
		accountHash: cfg.AccountHash,
		baseURL:     strings.TrimRight(base, "/"),
		client: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.Named("images"),
	}
}

// UploadImage sends data to Cloudflare Images and returns the delivery URL of every variant.
func (c *CloudflareImages) UploadImage(ctx context.Context, filename string, data []byte) (string, map[string]string, error) {
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty file, size is 0 bytes")
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
		if err := writer.WriteField("requireSignedURLs", "false"); err != nil {
			return nil, "", fmt.Errorf("failed to add form field: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to close writer: %w", err)
		}
		return formBuf, writer.FormDataContentType(), nil
	}

	formBuf, contentType, err := createForm()
	if err != nil {
		return "", nil, err
	}

	url := fmt.Sprintf("%s/accounts/%s/images/v1", c.baseURL, c.accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, formBuf)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
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
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", nil, fmt.Errorf("cloudflare returned non-OK status: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var out cloudflareImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !out.Success {
		return "", nil, fmt.Errorf("cloudflare returned error: %v", out.Errors)
	}

	id := out.Result.ID
	c.logger.Debug("image uploaded", zap.String("image_id", id), zap.String("file", filename))
	return id, map[string]string{
		VariantPublic:    c.VariantURL(id, VariantPublic),
		VariantThumbnail: c.VariantURL(id, VariantThumbnail),
	}, nil
}

func (c *CloudflareImages) DeleteImage(ctx context.Context, imageID string) error {
	url := fmt.Sprintf("%s/accounts/%s/images/v1/%s", c.baseURL, c.accountID, imageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to delete image: %d", resp.StatusCode)
	}
	return nil
}

func (c *CloudflareImages) VariantURL(imageID, variant string) string {
	return fmt.Sprintf("https://imagedelivery.net/%s/%s/%s", c.accountHash, imageID, variant)
}
