package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPrefix(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	})

	testCases := []struct {
		name   string
		prefix string
		path   string
		want   string
	}{
		{"strips matching prefix", "/prod", "/prod/chat", "/chat"},
		{"strips trailing slash prefix", "/prod/", "/prod/chat", "/chat"},
		{"exact match becomes root", "/prod", "/prod", "/"},
		{"other prefix untouched", "/prod", "/dev/chat", "/dev/chat"},
		{"empty prefix does nothing", "", "/prod/chat", "/prod/chat"},
		{"partial segment not stripped", "/prod", "/production/chat", "/production/chat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			StripPrefix(tc.prefix)(echo).ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, tc.path, nil))
			assert.Equal(t, tc.want, recorder.Body.String())
		})
	}
}
