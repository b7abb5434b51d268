package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/repository"
)

func TestCountUsageByUserBatchChunks(t *testing.T) {
	env := setupVoucherServiceTest(t)
	ctx := context.Background()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		v := env.createVoucher(t, CreateVoucherInput{Code: fmt.Sprintf("BATCH%d", i), UsageLimitPerUser: 3})
		ids = append(ids, v.ID)
	}
	// 第 0、3、4 个优惠码分别使用 1、2、1 次，跨越批次边界
	redeem := map[int]int{0: 1, 3: 2, 4: 1}
	for idx, times := range redeem {
		for n := 0; n < times; n++ {
			if _, err := env.redemption.Apply(ctx, ids[idx], "u1", fmt.Sprintf("o-%d-%d", idx, n), models.NewMoneyFromInt(1)); err != nil {
				t.Fatalf("redeem failed: %v", err)
			}
		}
	}
	if _, err := env.redemption.Apply(ctx, ids[1], "u2", "other", models.NewMoneyFromInt(1)); err != nil {
		t.Fatalf("redeem for u2 failed: %v", err)
	}

	query := append([]string{"", "unknown", ids[0]}, ids...)
	counts, err := env.usage.CountUsageByUserBatch(ctx, query, "u1")
	if err != nil {
		t.Fatalf("batch count failed: %v", err)
	}
	if len(counts) != 6 {
		t.Fatalf("want 6 keys (5 vouchers + unknown), got %d: %v", len(counts), counts)
	}
	want := []int64{1, 0, 0, 2, 1}
	for i, id := range ids {
		if counts[id] != want[i] {
			t.Fatalf("voucher %d want %d got %d", i, want[i], counts[id])
		}
	}
	if counts["unknown"] != 0 {
		t.Fatalf("unknown id should default to 0")
	}

	empty, err := env.usage.CountUsageByUserBatch(ctx, ids, " ")
	if err != nil {
		t.Fatalf("blank user batch failed: %v", err)
	}
	for _, id := range ids {
		if empty[id] != 0 {
			t.Fatalf("blank user should count 0 for %s", id)
		}
	}
}

func TestListUsagesFiltersByVoucherAndUser(t *testing.T) {
	env := setupVoucherServiceTest(t)
	ctx := context.Background()
	v := env.createVoucher(t, CreateVoucherInput{Code: "HIST01", UsageLimitPerUser: 5})
	for i := 0; i < 3; i++ {
		if _, err := env.redemption.Apply(ctx, v.ID, "u1", fmt.Sprintf("o%d", i), models.NewMoneyFromInt(1)); err != nil {
			t.Fatalf("redeem failed: %v", err)
		}
	}
	if _, err := env.redemption.Apply(ctx, v.ID, "u2", "o9", models.NewMoneyFromInt(1)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	usages, total, err := env.usage.ListUsages(ctx, repository.VoucherUsageListFilter{VoucherID: v.ID, UserID: "u1", Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list usages failed: %v", err)
	}
	if total != 3 || len(usages) != 2 {
		t.Fatalf("want total 3 page 2, got total=%d page=%d", total, len(usages))
	}
}

func TestReconcileReportsDriftWithoutFixing(t *testing.T) {
	env := setupVoucherServiceTest(t)
	ctx := context.Background()
	clean := env.createVoucher(t, CreateVoucherInput{Code: "CLEAN1"})
	drifted := env.createVoucher(t, CreateVoucherInput{Code: "DRIFT1"})
	for _, id := range []string{clean.ID, drifted.ID} {
		if _, err := env.redemption.Apply(ctx, id, "u1", "o1", models.NewMoneyFromInt(1)); err != nil {
			t.Fatalf("redeem failed: %v", err)
		}
	}
	if err := env.db.Exec("UPDATE vouchers SET current_usage = 7 WHERE id = ?", drifted.ID).Error; err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	report, err := env.usage.ReconcileVoucher(ctx, clean.ID)
	if err != nil || report.Drift {
		t.Fatalf("clean voucher should not drift: %+v err=%v", report, err)
	}

	summary, err := env.usage.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("reconcile all failed: %v", err)
	}
	if summary.Checked != 2 || len(summary.Drifted) != 1 || summary.Drifted[0].VoucherID != drifted.ID {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Drifted[0].LedgerCount != 1 || summary.Drifted[0].CurrentUsage != 7 {
		t.Fatalf("unexpected drift report: %+v", summary.Drifted[0])
	}
	if usage := env.reload(t, drifted.ID).CurrentUsage; usage != 7 {
		t.Fatalf("reconcile must not correct usage, got %d", usage)
	}
}
