package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"portcontracts/services"
)

// ContractController обрабатывает запросы, связанные с договорами
type ContractController struct {
	contracts *services.ContractService
	invoices  *services.InvoiceService
}

// NewContractController создает новый экземпляр ContractController
func NewContractController(contracts *services.ContractService, invoices *services.InvoiceService) *ContractController {
	return &ContractController{
		contracts: contracts,
		invoices:  invoices,
	}
}

// RegisterRoutes регистрирует маршруты договоров
func (cc *ContractController) RegisterRoutes(rg *gin.RouterGroup) {
	contracts := rg.Group("/contracts")
	contracts.GET("", cc.List)
	contracts.POST("", cc.Create)
	contracts.GET("/:id", cc.Get)
	contracts.PUT("/:id", cc.Update)
	contracts.DELETE("/:id", cc.Delete)
	contracts.GET("/:id/can-delete", cc.CanDelete)
	contracts.POST("/:id/cancel", cc.Cancel)
	contracts.GET("/:id/payment-terms/:termId/invoice.xml", cc.ExportInvoice)
}

// List возвращает договоры с фильтрами status, customerId, q
func (cc *ContractController) List(c *gin.Context) {
	var filter services.ContractFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверные параметры фильтра"})
		return
	}

	contracts, err := cc.contracts.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contracts": contracts,
		"total":     len(contracts),
	})
}

// Get возвращает договор со всеми коллекциями
func (cc *ContractController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	contract, err := cc.contracts.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Create создает договор из полного описания формы
func (cc *ContractController) Create(c *gin.Context) {
	var dto services.ContractDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное тело запроса"})
		return
	}

	contract, err := cc.contracts.Create(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

// Update полностью заменяет договор
func (cc *ContractController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var dto services.ContractDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное тело запроса"})
		return
	}

	contract, err := cc.contracts.Update(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// Delete удаляет договор, если он еще не начат и пуст
func (cc *ContractController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := cc.contracts.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CanDelete сообщает клиенту, показывать ли удаление или только отмену
func (cc *ContractController) CanDelete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	allowed, err := cc.contracts.CanDelete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canDelete": allowed})
}

// Cancel отменяет договор
func (cc *ContractController) Cancel(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	contract, err := cc.contracts.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

// ExportInvoice отдает XML счета по этапу оплаты
func (cc *ContractController) ExportInvoice(c *gin.Context) {
	contractID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	termID, ok := uuidParam(c, "termId")
	if !ok {
		return
	}

	data, err := cc.invoices.ExportPaymentTerm(c.Request.Context(), contractID, termID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.xml", termID))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}
