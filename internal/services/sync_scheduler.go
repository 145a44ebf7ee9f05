package services

import (
	"adgp/internal/models"
	"adgp/pkg/logger"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SyncExecutor 执行一次同步，由调度器带重试调用
type SyncExecutor func(strategy *models.SyncStrategy) error

// SyncScheduler 数据同步调度器
//
// 启动时加载所有启用的策略，策略CRUD后增删改对应任务。
// 每次执行记录SyncRun，失败按策略的重试配置重试，
// 开启退避时重试间隔逐次翻倍。
type SyncScheduler struct {
	db       *gorm.DB
	cron     *cron.Cron
	executor SyncExecutor
	jobMap   map[uint]cron.EntryID // strategyID -> cronJobID
	mu       sync.RWMutex
	running  bool
}

// NewSyncScheduler 创建同步调度器
func NewSyncScheduler(db *gorm.DB, executor SyncExecutor) *SyncScheduler {
	if executor == nil {
		executor = defaultSyncExecutor(db)
	}
	return &SyncScheduler{
		db:       db,
		cron:     cron.New(),
		executor: executor,
		jobMap:   make(map[uint]cron.EntryID),
	}
}

// Start 启动调度器
func (s *SyncScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	log := logger.GetLogger()
	log.Info("启动数据同步调度器")

	var strategies []models.SyncStrategy
	if err := s.db.Where("enabled = ?", true).Find(&strategies).Error; err != nil {
		return fmt.Errorf("查询同步策略失败: %v", err)
	}

	for i := range strategies {
		if err := s.scheduleStrategy(&strategies[i]); err != nil {
			log.WithError(err).Errorf("调度同步策略 %s 失败", strategies[i].Name)
			continue
		}
	}

	s.cron.Start()
	s.running = true

	log.Infof("数据同步调度器启动成功，已加载 %d 个策略", len(s.jobMap))
	return nil
}

// Stop 停止调度器
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	logger.GetLogger().Info("停止数据同步调度器")

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.running = false
	s.jobMap = make(map[uint]cron.EntryID)
}

// AddStrategy 添加策略的调度任务
func (s *SyncScheduler) AddStrategy(strategyID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, exists := s.jobMap[strategyID]; exists {
		s.cron.Remove(jobID)
		delete(s.jobMap, strategyID)
	}

	var strategy models.SyncStrategy
	if err := s.db.First(&strategy, strategyID).Error; err != nil {
		return fmt.Errorf("获取同步策略失败: %v", err)
	}
	if !strategy.Enabled {
		return nil
	}

	return s.scheduleStrategy(&strategy)
}

// RemoveStrategy 移除策略的调度任务
func (s *SyncScheduler) RemoveStrategy(strategyID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, exists := s.jobMap[strategyID]; exists {
		s.cron.Remove(jobID)
		delete(s.jobMap, strategyID)
		logger.GetLogger().Infof("移除同步策略 %d 的调度任务", strategyID)
	}
}

// UpdateStrategy 策略变更后重建调度任务
func (s *SyncScheduler) UpdateStrategy(strategyID uint) error {
	s.RemoveStrategy(strategyID)
	return s.AddStrategy(strategyID)
}

// TriggerRun 手动触发一次同步
func (s *SyncScheduler) TriggerRun(strategyID, tenantID uint) (string, error) {
	var strategy models.SyncStrategy
	err := s.db.Where("id = ? AND tenant_id = ?", strategyID, tenantID).First(&strategy).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", fmt.Errorf("同步策略不存在")
		}
		return "", err
	}

	runID := uuid.New().String()
	go s.executeRun(&strategy, runID, models.SyncTriggerManual)
	return runID, nil
}

// scheduleStrategy 为策略创建定时任务，调用方持有锁
func (s *SyncScheduler) scheduleStrategy(strategy *models.SyncStrategy) error {
	strategyID := strategy.ID
	jobID, err := s.cron.AddFunc(strategy.CronExpr, func() {
		// 执行时重新读取，拿到最新的重试配置
		var current models.SyncStrategy
		if err := s.db.First(&current, strategyID).Error; err != nil {
			logger.GetLogger().WithError(err).Errorf("读取同步策略 %d 失败", strategyID)
			return
		}
		s.executeRun(&current, uuid.New().String(), models.SyncTriggerCron)
	})
	if err != nil {
		return fmt.Errorf("创建定时任务失败: %v", err)
	}

	s.jobMap[strategy.ID] = jobID
	logger.GetLogger().Infof("已调度同步策略 %s，表达式: %s", strategy.Name, strategy.CronExpr)
	return nil
}

// executeRun 执行一次同步，带重试
func (s *SyncScheduler) executeRun(strategy *models.SyncStrategy, runID, trigger string) {
	log := logger.GetLogger()

	now := time.Now()
	run := &models.SyncRun{
		TenantID:   strategy.TenantID,
		StrategyID: strategy.ID,
		RunID:      runID,
		Trigger:    trigger,
		Status:     models.SyncRunStatusRunning,
		StartedAt:  &now,
	}
	if err := s.db.Create(run).Error; err != nil {
		log.WithError(err).Errorf("记录同步执行 %s 失败", runID)
		return
	}

	maxAttempts := strategy.MaxRetries + 1
	interval := time.Duration(strategy.RetryInterval) * time.Second

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		lastErr = s.executor(strategy)
		if lastErr == nil {
			break
		}
		log.WithError(lastErr).Warnf("同步策略 %s 第 %d 次执行失败", strategy.Name, attempts)
		if attempts < maxAttempts {
			time.Sleep(interval)
			if strategy.Backoff {
				interval *= 2
			}
		}
	}

	finished := time.Now()
	status := models.SyncRunStatusSuccess
	errMsg := ""
	if lastErr != nil {
		status = models.SyncRunStatusFailed
		errMsg = lastErr.Error()
	}

	updates := map[string]interface{}{
		"status":      status,
		"attempts":    attempts,
		"error_msg":   errMsg,
		"finished_at": &finished,
	}
	if err := s.db.Model(run).Updates(updates).Error; err != nil {
		log.WithError(err).Errorf("更新同步执行 %s 失败", runID)
	}

	s.db.Model(&models.SyncStrategy{}).Where("id = ?", strategy.ID).
		Updates(map[string]interface{}{
			"last_run_at":     &finished,
			"last_run_status": status,
		})

	if lastErr != nil {
		log.Errorf("同步策略 %s 执行失败（尝试 %d 次）: %v", strategy.Name, attempts, lastErr)
	} else {
		log.Infof("同步策略 %s 执行成功（尝试 %d 次）", strategy.Name, attempts)
	}
}

// IsRunning 检查调度器是否运行中
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// defaultSyncExecutor 默认执行器：校验源目标配置可用
//
// TODO: 接入真实的数据搬运管道后替换
func defaultSyncExecutor(db *gorm.DB) SyncExecutor {
	return func(strategy *models.SyncStrategy) error {
		var configs []models.DatabaseConfig
		err := db.Where("id IN ? AND tenant_id = ?",
			[]uint{strategy.SourceConfigID, strategy.TargetConfigID}, strategy.TenantID).
			Find(&configs).Error
		if err != nil {
			return err
		}
		if len(configs) < 2 && strategy.SourceConfigID != strategy.TargetConfigID {
			return fmt.Errorf("源或目标数据库配置不存在")
		}
		for _, config := range configs {
			if config.Status != "active" {
				return fmt.Errorf("数据库配置 %s 未启用", config.Name)
			}
		}
		return nil
	}
}
