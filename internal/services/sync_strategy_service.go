package services

import (
	"adgp/internal/models"
	"fmt"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SyncStrategyService 数据同步策略服务
//
// CRUD后通知调度器增删改任务；写操作记录历史快照。
type SyncStrategyService struct {
	db        *gorm.DB
	history   *ConfigHistoryService
	scheduler *SyncScheduler
}

// NewSyncStrategyService 创建同步策略服务
func NewSyncStrategyService(db *gorm.DB, history *ConfigHistoryService, scheduler *SyncScheduler) *SyncStrategyService {
	return &SyncStrategyService{db: db, history: history, scheduler: scheduler}
}

// Create 创建同步策略
func (s *SyncStrategyService) Create(strategy *models.SyncStrategy, operatorID uint) error {
	if strategy.TenantID == 0 {
		return fmt.Errorf("租户ID不能为空")
	}
	if strategy.Name == "" {
		return fmt.Errorf("策略名称不能为空")
	}
	if strategy.SyncMode != models.SyncModeFull && strategy.SyncMode != models.SyncModeIncremental {
		return fmt.Errorf("非法的同步模式: %s", strategy.SyncMode)
	}
	if err := validateCronExpr(strategy.CronExpr); err != nil {
		return err
	}
	if strategy.MaxRetries < 0 || strategy.RetryInterval < 0 {
		return fmt.Errorf("重试配置不能为负数")
	}
	if err := s.checkConfigRefs(strategy); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(strategy).Error; err != nil {
			return err
		}
		return s.history.Record(tx, strategy.TenantID, models.ConfigTypeSync, strategy.ID,
			models.ChangeTypeCreate, strategy, operatorID, "创建同步策略")
	})
	if err != nil {
		return err
	}

	if strategy.Enabled && s.scheduler != nil {
		return s.scheduler.AddStrategy(strategy.ID)
	}
	return nil
}

// Update 更新同步策略
func (s *SyncStrategyService) Update(id, tenantID uint, updates map[string]interface{}, operatorID uint) error {
	var strategy models.SyncStrategy
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("同步策略不存在")
		}
		return err
	}

	if cronExpr, ok := updates["cron_expr"]; ok {
		str, _ := cronExpr.(string)
		if err := validateCronExpr(str); err != nil {
			return err
		}
	}
	if syncMode, ok := updates["sync_mode"]; ok {
		str, _ := syncMode.(string)
		if str != models.SyncModeFull && str != models.SyncModeIncremental {
			return fmt.Errorf("非法的同步模式")
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeSync, strategy.ID,
			models.ChangeTypeUpdate, &strategy, operatorID, "更新同步策略"); err != nil {
			return err
		}
		return tx.Model(&strategy).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	if s.scheduler != nil {
		return s.scheduler.UpdateStrategy(id)
	}
	return nil
}

// Delete 删除同步策略
func (s *SyncStrategyService) Delete(id, tenantID, operatorID uint) error {
	var strategy models.SyncStrategy
	if err := s.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&strategy).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("同步策略不存在")
		}
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.history.Record(tx, tenantID, models.ConfigTypeSync, strategy.ID,
			models.ChangeTypeDelete, &strategy, operatorID, "删除同步策略"); err != nil {
			return err
		}
		return tx.Delete(&strategy).Error
	})
	if err != nil {
		return err
	}

	if s.scheduler != nil {
		s.scheduler.RemoveStrategy(id)
	}
	return nil
}

// SetEnabled 启用/停用同步策略
func (s *SyncStrategyService) SetEnabled(id, tenantID uint, enabled bool, operatorID uint) error {
	return s.Update(id, tenantID, map[string]interface{}{"enabled": enabled}, operatorID)
}

// GetByID 查询同步策略详情
func (s *SyncStrategyService) GetByID(id, tenantID uint) (*models.SyncStrategy, error) {
	var strategy models.SyncStrategy
	err := s.db.Preload("SourceConfig").Preload("TargetConfig").
		Where("id = ? AND tenant_id = ?", id, tenantID).First(&strategy).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("同步策略不存在")
		}
		return nil, err
	}
	if strategy.SourceConfig != nil {
		strategy.SourceConfig.Password = ""
	}
	if strategy.TargetConfig != nil {
		strategy.TargetConfig.Password = ""
	}
	return &strategy, nil
}

// List 分页查询同步策略
func (s *SyncStrategyService) List(tenantID uint, enabled *bool, page, pageSize int) ([]models.SyncStrategy, int64, error) {
	query := s.db.Model(&models.SyncStrategy{}).Where("tenant_id = ?", tenantID)
	if enabled != nil {
		query = query.Where("enabled = ?", *enabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var strategies []models.SyncStrategy
	offset := (page - 1) * pageSize
	err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&strategies).Error
	if err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}

// ListRuns 分页查询策略执行记录
func (s *SyncStrategyService) ListRuns(tenantID, strategyID uint, page, pageSize int) ([]models.SyncRun, int64, error) {
	query := s.db.Model(&models.SyncRun{}).Where("tenant_id = ?", tenantID)
	if strategyID != 0 {
		query = query.Where("strategy_id = ?", strategyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []models.SyncRun
	offset := (page - 1) * pageSize
	err := query.Order("id DESC").Offset(offset).Limit(pageSize).Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// checkConfigRefs 校验源目标数据库配置存在且同租户
func (s *SyncStrategyService) checkConfigRefs(strategy *models.SyncStrategy) error {
	if strategy.SourceConfigID == 0 || strategy.TargetConfigID == 0 {
		return fmt.Errorf("源和目标数据库配置不能为空")
	}
	if strategy.SourceConfigID == strategy.TargetConfigID {
		return fmt.Errorf("源和目标数据库配置不能相同")
	}

	var count int64
	s.db.Model(&models.DatabaseConfig{}).
		Where("id IN ? AND tenant_id = ?",
			[]uint{strategy.SourceConfigID, strategy.TargetConfigID}, strategy.TenantID).
		Count(&count)
	if count != 2 {
		return fmt.Errorf("源或目标数据库配置不存在")
	}
	return nil
}

// validateCronExpr 校验cron表达式
func validateCronExpr(expr string) error {
	if expr == "" {
		return fmt.Errorf("调度表达式不能为空")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("非法的调度表达式: %v", err)
	}
	return nil
}
