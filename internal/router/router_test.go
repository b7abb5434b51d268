package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/config"
	"github.com/dujiao-next/voucher-engine/internal/http/response"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/provider"
	"github.com/dujiao-next/voucher-engine/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int                 `json:"status_code"`
	Msg        string              `json:"msg"`
	Data       json.RawMessage     `json:"data"`
	Pagination response.Pagination `json:"pagination"`
}

func setupRouterTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := models.Migrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{Server: config.ServerConfig{Mode: "debug"}}
	queueClient, _ := queue.NewClient(&cfg.Queue)
	return SetupRouter(cfg, provider.Build(cfg, db, queueClient))
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, userID string) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s %s failed: %v body=%s", method, path, err, w.Body.String())
	}
	return resp
}

func createFreeShipVoucher(t *testing.T, r *gin.Engine) string {
	t.Helper()
	now := time.Now().UTC()
	resp := doJSON(t, r, http.MethodPost, "/api/v1/admin/vouchers", gin.H{
		"code":                 "freeship50",
		"name":                 "Free shipping half off",
		"type":                 "FREE_SHIP",
		"value":                "50",
		"usage_limit":          1,
		"usage_limit_per_user": 1,
		"valid_from":           now.Add(-time.Hour).Format(time.RFC3339),
		"valid_to":             now.Add(24 * time.Hour).Format(time.RFC3339),
	}, "")
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("create voucher failed: %d %s", resp.StatusCode, resp.Msg)
	}
	var voucher struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(resp.Data, &voucher); err != nil {
		t.Fatalf("decode voucher failed: %v", err)
	}
	if voucher.Code != "FREESHIP50" || voucher.ID == "" {
		t.Fatalf("unexpected voucher: %+v", voucher)
	}
	return voucher.ID
}

func TestVoucherLifecycleOverHTTP(t *testing.T) {
	r := setupRouterTest(t)
	id := createFreeShipVoucher(t, r)

	validate := doJSON(t, r, http.MethodPost, "/api/v1/vouchers/validate", gin.H{
		"code":     "FREESHIP50",
		"subtotal": "80000",
		"ship_fee": "15000",
	}, "")
	var preview struct {
		Valid          bool   `json:"valid"`
		DiscountAmount string `json:"discount_amount"`
		Reason         string `json:"reason"`
	}
	if err := json.Unmarshal(validate.Data, &preview); err != nil {
		t.Fatalf("decode preview failed: %v", err)
	}
	if !preview.Valid || preview.DiscountAmount != "7500.00" {
		t.Fatalf("unexpected preview: %+v", preview)
	}

	redeemPath := "/api/v1/vouchers/" + id + "/redeem"
	first := doJSON(t, r, http.MethodPost, redeemPath, gin.H{"order_id": "order-1", "discount_amount": "7500"}, "user-1")
	if first.StatusCode != response.CodeOK {
		t.Fatalf("first redeem failed: %d %s", first.StatusCode, first.Msg)
	}

	replay := doJSON(t, r, http.MethodPost, redeemPath, gin.H{"order_id": "order-1", "discount_amount": "7500"}, "user-1")
	var replayed struct {
		Replayed bool `json:"replayed"`
		Voucher  struct {
			CurrentUsage int `json:"current_usage"`
		} `json:"voucher"`
	}
	if err := json.Unmarshal(replay.Data, &replayed); err != nil {
		t.Fatalf("decode replay failed: %v", err)
	}
	if replay.StatusCode != response.CodeOK || !replayed.Replayed || replayed.Voucher.CurrentUsage != 1 {
		t.Fatalf("replay should succeed without new usage: %d %+v", replay.StatusCode, replayed)
	}

	exhausted := doJSON(t, r, http.MethodPost, redeemPath, gin.H{"order_id": "order-2", "discount_amount": "7500"}, "user-2")
	if exhausted.StatusCode != response.CodeConflict {
		t.Fatalf("exhausted voucher should return 409, got %d", exhausted.StatusCode)
	}

	again := doJSON(t, r, http.MethodPost, "/api/v1/vouchers/validate", gin.H{"code": "FREESHIP50", "subtotal": "80000", "ship_fee": "15000"}, "")
	if err := json.Unmarshal(again.Data, &preview); err != nil {
		t.Fatalf("decode preview failed: %v", err)
	}
	if preview.Valid || preview.Reason != "usage_limit_reached" {
		t.Fatalf("unexpected preview after exhaustion: %+v", preview)
	}

	usages := doJSON(t, r, http.MethodGet, "/api/v1/admin/vouchers/"+id+"/usages", nil, "")
	if usages.StatusCode != response.CodeOK || usages.Pagination.Total != 1 {
		t.Fatalf("usages want 1 got %+v", usages.Pagination)
	}

	reconcile := doJSON(t, r, http.MethodGet, "/api/v1/admin/vouchers/"+id+"/reconcile", nil, "")
	var report struct {
		Drift       bool  `json:"drift"`
		LedgerCount int64 `json:"ledger_count"`
	}
	if err := json.Unmarshal(reconcile.Data, &report); err != nil {
		t.Fatalf("decode report failed: %v", err)
	}
	if report.Drift || report.LedgerCount != 1 {
		t.Fatalf("unexpected reconcile report: %+v", report)
	}

	deleted := doJSON(t, r, http.MethodDelete, "/api/v1/admin/vouchers/"+id, nil, "")
	if deleted.StatusCode != response.CodeOK {
		t.Fatalf("delete failed: %d", deleted.StatusCode)
	}
	missing := doJSON(t, r, http.MethodGet, "/api/v1/admin/vouchers/"+id, nil, "")
	if missing.StatusCode != response.CodeNotFound {
		t.Fatalf("deleted voucher should be 404, got %d", missing.StatusCode)
	}
	redeemDeleted := doJSON(t, r, http.MethodPost, redeemPath, gin.H{"order_id": "order-3"}, "user-3")
	if redeemDeleted.StatusCode != response.CodeNotFound {
		t.Fatalf("redeeming deleted voucher should be 404, got %d", redeemDeleted.StatusCode)
	}
}

func TestCreateVoucherRejectsMalformedCode(t *testing.T) {
	r := setupRouterTest(t)
	now := time.Now().UTC()
	resp := doJSON(t, r, http.MethodPost, "/api/v1/admin/vouchers", gin.H{
		"code":                 "AB-1",
		"name":                 "bad",
		"type":                 "FIXED_AMOUNT",
		"value":                "10",
		"usage_limit":          1,
		"usage_limit_per_user": 1,
		"valid_from":           now.Format(time.RFC3339),
		"valid_to":             now.Add(time.Hour).Format(time.RFC3339),
	}, "")
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}
	if resp.Msg != response.Message("error.voucher_code_invalid") {
		t.Fatalf("unexpected message: %s", resp.Msg)
	}
}

func TestUpdateVoucherRejectsImmutableCode(t *testing.T) {
	r := setupRouterTest(t)
	id := createFreeShipVoucher(t, r)

	resp := doJSON(t, r, http.MethodPut, "/api/v1/admin/vouchers/"+id, gin.H{"code": "OTHER123"}, "")
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}

	renamed := doJSON(t, r, http.MethodPut, "/api/v1/admin/vouchers/"+id, gin.H{"name": "Renamed"}, "")
	if renamed.StatusCode != response.CodeOK {
		t.Fatalf("rename failed: %d %s", renamed.StatusCode, renamed.Msg)
	}
}

func TestRedeemRequiresUser(t *testing.T) {
	r := setupRouterTest(t)
	id := createFreeShipVoucher(t, r)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/vouchers/"+id+"/redeem", gin.H{"order_id": "order-1"}, "")
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("status_code want 400 got %d", resp.StatusCode)
	}
}

func TestAvailableVouchersForUser(t *testing.T) {
	r := setupRouterTest(t)
	id := createFreeShipVoucher(t, r)
	doJSON(t, r, http.MethodPost, "/api/v1/vouchers/"+id+"/redeem", gin.H{"order_id": "order-1"}, "user-1")

	resp := doJSON(t, r, http.MethodGet, "/api/v1/vouchers/available?shop_id=shop-9", nil, "user-1")
	var items []struct {
		MyUsageCount    int64 `json:"my_usage_count"`
		MyRemainingUses int64 `json:"my_remaining_uses"`
	}
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("decode available failed: %v", err)
	}
	if len(items) != 1 || items[0].MyUsageCount != 1 || items[0].MyRemainingUses != 0 {
		t.Fatalf("unexpected available vouchers: %+v", items)
	}
}

func TestReconcileAllRunsInlineWithoutQueue(t *testing.T) {
	r := setupRouterTest(t)
	createFreeShipVoucher(t, r)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/admin/vouchers/reconcile", nil, "")
	var body struct {
		Queued  bool `json:"queued"`
		Summary struct {
			Checked int `json:"checked"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(resp.Data, &body); err != nil {
		t.Fatalf("decode reconcile failed: %v", err)
	}
	if resp.StatusCode != response.CodeOK || body.Queued || body.Summary.Checked != 1 {
		t.Fatalf("unexpected reconcile response: %d %+v", resp.StatusCode, body)
	}
}
