package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegisterHonorsToggle(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		mux := http.NewServeMux()
		Register(mux, Config{EnablePprof: enabled})

		req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
		resp := httptest.NewRecorder()
		mux.ServeHTTP(resp, req)

		want := http.StatusNotFound
		if enabled {
			want = http.StatusOK
		}
		if resp.Code != want {
			t.Fatalf("enabled=%v: expected %d, got %d", enabled, want, resp.Code)
		}
	}
}
