package request

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/stretchr/testify/require"
)

func TestHandlers(t *testing.T) {
	c := logging.NewConfig(`tests`)
	c.Writer = new(bytes.Buffer)
	c.Format = "json"
	l, err := logging.CommonLogger(c)
	require.NoError(t, err, "Failed to create logger")

	tests := []struct {
		name    string
		handler http.HandlerFunc
		r       *http.Request
		status  int
		want    string
	}{
		{
			name:    "NotFound",
			handler: NotFoundHandler(l),
			r:       httptest.NewRequest(http.MethodGet, "/nope", nil),
			status:  http.StatusNotFound,
			want:    "{\"message\":\"no route for /nope\"}\n",
		},
		{
			name:    "MethodNotAllowed",
			handler: MethodNotAllowedHandler(l),
			r:       httptest.NewRequest(http.MethodPost, "/metrics", nil),
			status:  http.StatusMethodNotAllowed,
			want:    "{\"message\":\"method POST not allowed\"}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, tt.r)
			require.Equal(t, tt.status, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			require.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestClientWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := NewClientWriter(rec)
	require.Equal(t, http.StatusOK, cw.StatusCode())

	cw.WriteHeader(http.StatusTeapot)
	cw.WriteHeader(http.StatusOK)
	require.Equal(t, http.StatusTeapot, cw.StatusCode())

	rec = httptest.NewRecorder()
	cw = NewClientWriter(rec)
	_, err := cw.Write([]byte("ok"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, cw.StatusCode())
}
