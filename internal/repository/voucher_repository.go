package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/voucher-engine/internal/models"

	"gorm.io/gorm"
)

// ErrProtectedColumn 尝试通过通用更新写入受保护字段
var ErrProtectedColumn = errors.New("protected column")

var protectedVoucherColumns = map[string]struct{}{
	"id":            {},
	"current_usage": {},
	"is_deleted":    {},
	"deleted_at":    {},
	"deleted_token": {},
	"scope_key":     {},
	"created_at":    {},
}

// VoucherRepository 优惠码数据访问接口
type VoucherRepository interface {
	GetByID(id string) (*models.Voucher, error)
	GetByIDForUpdate(id string) (*models.Voucher, error)
	FindByScopeAndCode(shopID *string, code string) (*models.Voucher, error)
	ListLiveIDs(afterID string, limit int) ([]string, error)
	Create(voucher *models.Voucher) error
	Patch(id string, fields map[string]interface{}) error
	SoftDelete(id string, at time.Time) (bool, error)
	CompareAndSetUsage(id string, expected, next int) error
	List(filter VoucherListFilter) ([]models.Voucher, int64, error)
	ListAvailable(shopID *string, now time.Time) ([]models.Voucher, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormVoucherRepository
	WithContext(ctx context.Context) *GormVoucherRepository
}

// GormVoucherRepository GORM 实现
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewVoucherRepository 创建优惠码仓库
func NewVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx 绑定事务
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) *GormVoucherRepository {
	if tx == nil {
		return r
	}
	return &GormVoucherRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormVoucherRepository) WithContext(ctx context.Context) *GormVoucherRepository {
	if ctx == nil {
		return r
	}
	return &GormVoucherRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormVoucherRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 根据ID获取优惠码（包含已删除记录）
func (r *GormVoucherRepository) GetByID(id string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.Where("id = ?", id).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// GetByIDForUpdate 加行锁读取优惠码，需在事务中调用
func (r *GormVoucherRepository) GetByIDForUpdate(id string) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := forUpdate(r.db).Where("id = ?", id).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// FindByScopeAndCode 在店铺（或平台）范围内按优惠码查找未删除记录
func (r *GormVoucherRepository) FindByScopeAndCode(shopID *string, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.
		Where("scope_key = ? AND code = ? AND is_deleted = ?", models.VoucherScopeKey(shopID), models.NormalizeVoucherCode(code), false).
		First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

// ListLiveIDs 按主键游标分页获取未删除优惠码ID
func (r *GormVoucherRepository) ListLiveIDs(afterID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = maxPageSize
	}
	var ids []string
	query := r.db.Model(&models.Voucher{}).Where("is_deleted = ?", false)
	if afterID != "" {
		query = query.Where("id > ?", afterID)
	}
	if err := query.Order("id asc").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Create 创建优惠码
func (r *GormVoucherRepository) Create(voucher *models.Voucher) error {
	voucher.Code = models.NormalizeVoucherCode(voucher.Code)
	voucher.ScopeKey = models.VoucherScopeKey(voucher.ShopID)
	voucher.DeletedToken = ""
	voucher.ValidFrom = voucher.ValidFrom.UTC()
	voucher.ValidTo = voucher.ValidTo.UTC()
	return r.db.Create(voucher).Error
}

// Patch 仅写入传入的字段
func (r *GormVoucherRepository) Patch(id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	for column := range fields {
		if _, ok := protectedVoucherColumns[column]; ok {
			return ErrProtectedColumn
		}
	}
	if code, ok := fields["code"].(string); ok {
		fields["code"] = models.NormalizeVoucherCode(code)
	}
	for _, column := range []string{"valid_from", "valid_to"} {
		if value, ok := fields[column].(time.Time); ok {
			fields[column] = value.UTC()
		}
	}
	return r.db.Model(&models.Voucher{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(fields).Error
}

// SoftDelete 软删除优惠码，返回是否实际发生删除
func (r *GormVoucherRepository) SoftDelete(id string, at time.Time) (bool, error) {
	result := r.db.Model(&models.Voucher{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted":    true,
			"deleted_at":    at.UTC(),
			"deleted_token": id,
			"updated_at":    at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CompareAndSetUsage 条件更新已使用次数，未命中返回 ErrWriteConflict
func (r *GormVoucherRepository) CompareAndSetUsage(id string, expected, next int) error {
	result := r.db.Model(&models.Voucher{}).
		Where("id = ? AND current_usage = ?", id, expected).
		Updates(map[string]interface{}{
			"current_usage": next,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWriteConflict
	}
	return nil
}

// List 获取优惠码列表
func (r *GormVoucherRepository) List(filter VoucherListFilter) ([]models.Voucher, int64, error) {
	var vouchers []models.Voucher
	query := r.db.Model(&models.Voucher{})

	if !filter.IncludeDeleted {
		query = query.Where("is_deleted = ?", false)
	}
	if filter.PlatformOnly {
		query = query.Where("shop_id IS NULL")
	} else if shopID := strings.TrimSpace(filter.ShopID); shopID != "" {
		query = query.Where("shop_id = ?", shopID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if code := models.NormalizeVoucherCode(filter.Code); code != "" {
		query = query.Where("code "+likeOperator(r.db)+" ?", "%"+code+"%")
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("created_at desc, id desc").Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

// ListAvailable 获取店铺与平台通用的可用优惠码
func (r *GormVoucherRepository) ListAvailable(shopID *string, now time.Time) ([]models.Voucher, error) {
	now = now.UTC()
	query := r.db.Model(&models.Voucher{}).
		Where("is_deleted = ? AND is_active = ?", false, true).
		Where("valid_from <= ? AND valid_to >= ?", now, now)
	if shopID != nil && strings.TrimSpace(*shopID) != "" {
		query = query.Where("(shop_id IS NULL OR shop_id = ?)", strings.TrimSpace(*shopID))
	} else {
		query = query.Where("shop_id IS NULL")
	}

	var vouchers []models.Voucher
	if err := query.Order("valid_to asc, id asc").Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}
