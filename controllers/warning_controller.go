package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portcontracts/services"
	"portcontracts/utils"
)

// WarningController отдает предупреждения о сроках и принимает их разбор
type WarningController struct {
	warnings *services.WarningService
}

// NewWarningController создает новый экземпляр WarningController
func NewWarningController(warnings *services.WarningService) *WarningController {
	return &WarningController{warnings: warnings}
}

// RegisterRoutes регистрирует маршруты предупреждений
func (wc *WarningController) RegisterRoutes(rg *gin.RouterGroup) {
	warnings := rg.Group("/warnings")
	warnings.GET("", wc.List)
	warnings.PUT("/triage", wc.Triage)
}

// List сканирует договоры на дату (по умолчанию сегодня) с горизонтом
// из запроса или из конфигурации
func (wc *WarningController) List(c *gin.Context) {
	var query services.WarningQueryDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверные параметры запроса"})
		return
	}

	warnings, err := wc.warnings.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	date := wc.warnings.Today()
	if parsed, ok := utils.ParseCalendarDate(query.Date); ok {
		date = parsed
	}
	horizon := wc.warnings.HorizonDays()
	if query.Horizon != nil {
		horizon = *query.Horizon
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        date.Format(utils.DateLayout),
		"horizonDays": horizon,
		"warnings":    warnings,
		"total":       len(warnings),
	})
}

// Triage сохраняет статус и заметку предупреждения
func (wc *WarningController) Triage(c *gin.Context) {
	var dto services.TriageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное тело запроса"})
		return
	}

	triage, err := wc.warnings.Triage(c.Request.Context(), dto, currentUserName(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, triage)
}
