package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAllowExhaustsBucket(t *testing.T) {
	l := NewScanThrottle(3)

	for i := 0; i < 3; i++ {
		if !l.allow("stu1") {
			t.Fatalf("request %d denied inside capacity", i+1)
		}
	}
	if l.allow("stu1") {
		t.Error("request over capacity allowed")
	}
	// Other keys have their own bucket.
	if !l.allow("stu2") {
		t.Error("fresh key denied")
	}
}

func TestKeyedGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	l := NewScanThrottle(1)
	r.POST("/scan", l.KeyedGinMiddleware(func(c *gin.Context) string {
		return c.GetHeader("X-Uid")
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(uid string) int {
		req := httptest.NewRequest(http.MethodPost, "/scan", nil)
		req.Header.Set("X-Uid", uid)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("stu1"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := post("stu1"); code != http.StatusTooManyRequests {
		t.Errorf("second request: %d, want 429", code)
	}
	if code := post("stu2"); code != http.StatusOK {
		t.Errorf("different key: %d, want 200", code)
	}
}
