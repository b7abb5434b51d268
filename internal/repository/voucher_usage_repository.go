package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherUsageRepository 优惠码核销记录数据访问接口
type VoucherUsageRepository interface {
	GetByID(id string) (*models.VoucherUsage, error)
	Create(usage *models.VoucherUsage) error
	CountByVoucher(voucherID string) (int64, error)
	CountByUser(voucherID, userID string) (int64, error)
	CountByUserForVouchers(voucherIDs []string, userID string) (map[string]int64, error)
	List(filter VoucherUsageListFilter) ([]models.VoucherUsage, int64, error)
	LockUserUsage(voucherID, userID string) (*models.VoucherUserUsage, error)
	CompareAndSetUserUsage(voucherID, userID string, expected, next int) error
	SumUserUsage(voucherID string) (int64, error)
	WithTx(tx *gorm.DB) *GormVoucherUsageRepository
	WithContext(ctx context.Context) *GormVoucherUsageRepository
}

// GormVoucherUsageRepository GORM 实现
type GormVoucherUsageRepository struct {
	db *gorm.DB
}

// NewVoucherUsageRepository 创建核销记录仓库
func NewVoucherUsageRepository(db *gorm.DB) *GormVoucherUsageRepository {
	return &GormVoucherUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherUsageRepository) WithTx(tx *gorm.DB) *GormVoucherUsageRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherUsageRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormVoucherUsageRepository) WithContext(ctx context.Context) *GormVoucherUsageRepository {
	if ctx == nil {
		return r
	}
	return &GormVoucherUsageRepository{db: r.db.WithContext(ctx)}
}

// GetByID 根据幂等键获取核销记录
func (r *GormVoucherUsageRepository) GetByID(id string) (*models.VoucherUsage, error) {
	var usage models.VoucherUsage
	if err := r.db.Where("id = ?", id).First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

// Create 写入核销记录，重复主键返回 gorm.ErrDuplicatedKey
func (r *GormVoucherUsageRepository) Create(usage *models.VoucherUsage) error {
	if usage.CreatedAt.IsZero() {
		usage.CreatedAt = time.Now()
	}
	usage.CreatedAt = usage.CreatedAt.UTC()
	return r.db.Create(usage).Error
}

// CountByVoucher 统计优惠码总核销次数
func (r *GormVoucherUsageRepository) CountByVoucher(voucherID string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.VoucherUsage{}).
		Where("voucher_id = ?", voucherID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByUser 获取用户使用次数
func (r *GormVoucherUsageRepository) CountByUser(voucherID, userID string) (int64, error) {
	var count int64
	if err := r.db.Model(&models.VoucherUsage{}).
		Where("voucher_id = ? AND user_id = ?", voucherID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type voucherCountRow struct {
	VoucherID string
	Total     int64
}

// CountByUserForVouchers 单次 IN 查询统计用户在多个优惠码上的使用次数
func (r *GormVoucherUsageRepository) CountByUserForVouchers(voucherIDs []string, userID string) (map[string]int64, error) {
	counts := make(map[string]int64, len(voucherIDs))
	if len(voucherIDs) == 0 {
		return counts, nil
	}
	var rows []voucherCountRow
	if err := r.db.Model(&models.VoucherUsage{}).
		Select("voucher_id, COUNT(*) AS total").
		Where("user_id = ? AND voucher_id IN ?", userID, voucherIDs).
		Group("voucher_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.VoucherID] = row.Total
	}
	return counts, nil
}

// List 获取核销记录列表
func (r *GormVoucherUsageRepository) List(filter VoucherUsageListFilter) ([]models.VoucherUsage, int64, error) {
	var usages []models.VoucherUsage
	query := r.db.Model(&models.VoucherUsage{})

	if filter.VoucherID != "" {
		query = query.Where("voucher_id = ?", filter.VoucherID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("created_at desc, id asc").Find(&usages).Error; err != nil {
		return nil, 0, err
	}
	return usages, total, nil
}

// LockUserUsage 获取（不存在则创建）用户计数行并加锁，需在事务中调用
func (r *GormVoucherUsageRepository) LockUserUsage(voucherID, userID string) (*models.VoucherUserUsage, error) {
	seed := models.VoucherUserUsage{
		VoucherID: voucherID,
		UserID:    userID,
		UsedCount: 0,
		UpdatedAt: time.Now(),
	}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var row models.VoucherUserUsage
	if err := forUpdate(r.db).
		Where("voucher_id = ? AND user_id = ?", voucherID, userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CompareAndSetUserUsage 条件更新用户使用次数，未命中返回 ErrWriteConflict
func (r *GormVoucherUsageRepository) CompareAndSetUserUsage(voucherID, userID string, expected, next int) error {
	result := r.db.Model(&models.VoucherUserUsage{}).
		Where("voucher_id = ? AND user_id = ? AND used_count = ?", voucherID, userID, expected).
		Updates(map[string]interface{}{
			"used_count": next,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWriteConflict
	}
	return nil
}

// SumUserUsage 汇总用户计数行（用于对账）
func (r *GormVoucherUsageRepository) SumUserUsage(voucherID string) (int64, error) {
	var total int64
	if err := r.db.Model(&models.VoucherUserUsage{}).
		Select("COALESCE(SUM(used_count), 0)").
		Where("voucher_id = ?", voucherID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
