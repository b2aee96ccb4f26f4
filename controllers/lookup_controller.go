package controllers

import (
	"github.com/gin-gonic/gin"

	"portcontracts/services"
)

// LookupController отдает справочники для форм клиента
type LookupController struct {
	lookups services.LookupProvider
}

func NewLookupController(lookups services.LookupProvider) *LookupController {
	return &LookupController{lookups: lookups}
}

// RegisterRoutes регистрирует маршруты справочников
func (lc *LookupController) RegisterRoutes(rg *gin.RouterGroup) {
	lookups := rg.Group("/lookups")
	lookups.GET("/customers", func(c *gin.Context) { respondList(c, lc.lookups.ListCustomers) })
	lookups.GET("/suppliers", func(c *gin.Context) { respondList(c, lc.lookups.ListSuppliers) })
	lookups.GET("/software-types", func(c *gin.Context) { respondList(c, lc.lookups.ListSoftwareTypes) })
	lookups.GET("/contract-types", func(c *gin.Context) { respondList(c, lc.lookups.ListContractTypes) })
	lookups.GET("/statuses", func(c *gin.Context) { respondList(c, lc.lookups.ListStatuses) })
}
