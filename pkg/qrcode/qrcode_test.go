package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteLink(t *testing.T) {
	s := NewQRService("https://keepevents.example/")
	assert.Equal(t, "https://keepevents.example/invite/tok123", s.InviteLink("tok123"))
}

func TestGenerateQRCode(t *testing.T) {
	s := NewQRService("https://keepevents.example")
	b, err := s.GenerateQRCode("tok123", 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}
