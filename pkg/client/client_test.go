package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		model   string
		image   string
		want    string
		wantErr bool
	}{
		{
			name:  "stage url",
			base:  "https://abc123.execute-api.us-east-1.amazonaws.com/dev",
			model: "detr",
			image: "https://images.example.com/cat.jpg",
			want:  "https://abc123.execute-api.us-east-1.amazonaws.com/dev/inference/detr?url=https%3A%2F%2Fimages.example.com%2Fcat.jpg",
		},
		{
			name:  "trailing slash",
			base:  "https://abc123.execute-api.us-east-1.amazonaws.com/dev/",
			model: "yolo",
			image: "http://x/y.png",
			want:  "https://abc123.execute-api.us-east-1.amazonaws.com/dev/inference/yolo?url=http%3A%2F%2Fx%2Fy.png",
		},
		{
			name:    "relative",
			base:    "/dev",
			model:   "yolo",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{BaseURL: tt.base}
			got, err := c.Endpoint(tt.model, tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name    string
		res     *http.Response
		err     error
		want    string
		wantErr string
	}{
		{
			name: "ok",
			res:  response(http.StatusOK, `{"boxes":[[1,2,3,4]],"labels":["cat"]}`),
			want: `{"boxes":[[1,2,3,4]],"labels":["cat"]}`,
		},
		{
			name:    "error status",
			res:     response(http.StatusBadGateway, `{"message":"Internal Server Error"}`),
			wantErr: `inference detr failed with status 502: {"message":"Internal Server Error"}`,
		},
		{
			name:    "not json",
			res:     response(http.StatusOK, `Task timed out`),
			wantErr: "is not JSON",
		},
		{
			name:    "transport error",
			err:     errors.New("connection refused"),
			wantErr: "could not invoke detr: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			doer := NewMockDoer(ctrl)
			doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodPost, req.Method)
				assert.Equal(t, "/dev/inference/detr", req.URL.Path)
				assert.Equal(t, "https://images.example.com/cat.jpg", req.URL.Query().Get("url"))
				return tt.res, tt.err
			})

			c := &Client{BaseURL: "https://api.example.com/dev", HTTP: doer}
			got, err := c.Infer(context.Background(), "detr", "https://images.example.com/cat.jpg")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestInfer_StatusError(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := NewMockDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Return(response(http.StatusNotFound, `{"message":"Not Found"}`), nil)

	c := &Client{BaseURL: "https://api.example.com/dev", HTTP: doer}
	_, err := c.Infer(context.Background(), "resnet", "http://x/y.png")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "resnet", statusErr.Model)
}

func TestInfer_NoModel(t *testing.T) {
	c := &Client{BaseURL: "https://api.example.com/dev", HTTP: NewMockDoer(gomock.NewController(t))}
	_, err := c.Infer(context.Background(), "", "http://x/y.png")
	assert.Error(t, err)
}

func TestNew_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/dev/inference/yolo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"detections":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/dev", Options{Timeout: 5 * time.Second, Retries: 2, Backoff: time.Millisecond}, nil)
	got, err := c.Infer(context.Background(), "yolo", "http://x/y.png")
	require.NoError(t, err)
	assert.JSONEq(t, `{"detections":[]}`, string(got))
	assert.Equal(t, int32(3), calls.Load())
}
