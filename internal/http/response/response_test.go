package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Error(c, CodeConflict, Message("error.voucher_total_limit_reached"))

	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var body struct {
		StatusCode int               `json:"status_code"`
		Msg        string            `json:"msg"`
		Data       map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != CodeConflict || body.Data["request_id"] != "req-1" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Msg != "voucher usage limit reached" {
		t.Fatalf("unexpected message: %s", body.Msg)
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	if p.TotalPage != 3 {
		t.Fatalf("total page want 3 got %d", p.TotalPage)
	}
	if NewPagination(1, 0, 10).TotalPage != 0 {
		t.Fatalf("zero page size should not divide")
	}
}

func TestMessageFallsBackToKey(t *testing.T) {
	if got := Message("error.unknown_key"); got != "error.unknown_key" {
		t.Fatalf("unknown key should be returned as-is, got %s", got)
	}
}
