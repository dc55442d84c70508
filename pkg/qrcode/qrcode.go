package qrcode

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// QRService renders invite links as PNG QR codes.
type QRService struct {
	baseURL string // e.g. "https://keepevents.example/invite/"
}

func NewQRService(frontendURL string) *QRService {
	return &QRService{
		baseURL: strings.TrimRight(frontendURL, "/") + "/invite/",
	}
}

// InviteLink is the frontend URL that redeems token.
func (s *QRService) InviteLink(token string) string {
	return s.baseURL + token
}

// GenerateQRCode returns a PNG encoding the invite link for token.
func (s *QRService) GenerateQRCode(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(s.InviteLink(token), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code PNG: %w", err)
	}
	return png, nil
}
