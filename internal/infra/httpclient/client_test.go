package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient()
	require.NotNil(t, client)

	httpClient, ok := client.(*HTTPClient)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, httpClient.client.Timeout)
}

func TestHTTPClient_DoHTTPRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		param      *RequestParam
		handler    http.HandlerFunc
		wantErrMsg string
		check      func(t *testing.T, param *RequestParam)
	}{
		{
			name:  "get decodes json",
			param: &RequestParam{Method: http.MethodGet, Response: &map[string]string{}},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				_, _ = w.Write([]byte(`{"message":"success"}`))
			},
			check: func(t *testing.T, param *RequestParam) {
				assert.Equal(t, "success", (*param.Response.(*map[string]string))["message"])
			},
		},
		{
			name: "post encodes json body",
			param: &RequestParam{
				Method: http.MethodPost,
				Body:   map[string]interface{}{"key": "value"},
				Header: map[string]string{"Content-Type": "application/json"},
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var data map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
				assert.Equal(t, "value", data["key"])
			},
		},
		{
			name:  "post streams reader body",
			param: &RequestParam{Method: http.MethodPost, Body: strings.NewReader("raw-bytes")},
			handler: func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Equal(t, "raw-bytes", string(body))
			},
		},
		{
			name:  "raw response bytes",
			param: &RequestParam{Method: http.MethodPost, Body: []byte{1, 2, 3}, Response: new([]byte)},
			handler: func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				_, _ = w.Write(append(body, 4))
			},
			check: func(t *testing.T, param *RequestParam) {
				assert.Equal(t, []byte{1, 2, 3, 4}, *param.Response.(*[]byte))
			},
		},
		{
			name:  "error status includes body",
			param: &RequestParam{Method: http.MethodGet},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error": "server error"}`))
			},
			wantErrMsg: `HTTP request failed with status 500: {"error": "server error"}`,
		},
		{
			name:       "unencodable body",
			param:      &RequestParam{Method: http.MethodPost, Body: make(chan int)},
			handler:    func(w http.ResponseWriter, r *http.Request) {},
			wantErrMsg: "json: unsupported type: chan int",
		},
		{
			name:  "per request timeout",
			param: &RequestParam{Method: http.MethodGet, Timeout: 20 * time.Millisecond},
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			wantErrMsg: "context deadline exceeded",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			tt.param.RequestURI = srv.URL
			err := NewHTTPClient().DoHTTPRequest(context.Background(), tt.param)

			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, tt.param)
			}
		})
	}
}

func TestHTTPClient_InvalidInput(t *testing.T) {
	t.Parallel()
	c := NewHTTPClient()

	err := c.DoHTTPRequest(context.Background(), nil)
	assert.EqualError(t, err, "request param is nil")

	err = c.DoHTTPRequest(context.Background(), &RequestParam{Method: http.MethodGet, RequestURI: "localhost/no-scheme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported protocol scheme")
}
