package tagging

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptionToTags(t *testing.T) {
	tests := []struct {
		caption string
		want    []string
	}{
		{"A group of people standing on the stage", []string{"group", "people", "stage", "standing"}},
		{"the THE The", []string{}},
		{"dog dog cat, bird! zebra yak xylophone whale", []string{"bird", "cat", "dog", "whale", "xylophone", "yak"}},
		{"a man with 2 guitars at night", []string{"guitars", "man", "night"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CaptionToTags(tt.caption), tt.caption)
	}
}

func TestClientTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image-to-tags", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","file"],"msg":"field required"}]}`))
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "stage.jpg", hdr.Filename)
		assert.Equal(t, "raw-bytes", string(b))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tags": []string{"Crowd", "the", "stage", "crowd", "lights"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5*time.Second)
	tags, err := c.Tags(context.Background(), "stage.jpg", []byte("raw-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []string{"crowd", "lights", "stage"}, tags)
}

func TestClientTagsFromCaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"caption": "a cat on a sofa"})
	}))
	defer srv.Close()

	tags, err := NewClient(srv.URL, time.Second).Tags(context.Background(), "c.png", []byte{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "sofa"}, tags)
}

func TestClientTagsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Tags(context.Background(), "x.jpg", []byte{1})
	assert.Error(t, err)

	_, err = c.Tags(context.Background(), "x.jpg", nil)
	assert.Error(t, err)
}
