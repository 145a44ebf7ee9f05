package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"adgp/internal/models"
)

// RegisterValidators 在gin的binding引擎上注册自定义校验器，
// 路由初始化时调用一次：
//   - cron: 标准五段cron表达式
//   - permaction: 数据操作闭集（read/write/delete/export）
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("permaction", func(fl validator.FieldLevel) bool {
		return models.IsValidDataAction(fl.Field().String())
	})
}
