package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portcontracts/middleware"
	"portcontracts/services"
	"portcontracts/utils"
)

// respondError переводит ошибку сервиса в HTTP ответ
func respondError(c *gin.Context, err error) {
	var validation *services.ValidationFailedError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "договор не прошел проверку",
			"errors": validation.Errors,
		})
	case errors.Is(err, services.ErrInvalidArgument):
		utils.LogError("неверный аргумент %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDeleteForbidden):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"hint":  "cancel",
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		middleware.MetricsFrom(c).RecordError("internal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка сервера"})
	}
}

// uuidParam разбирает идентификатор из пути; при ошибке отвечает 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный идентификатор " + name})
		return uuid.Nil, false
	}
	return id, true
}

// currentUserName имя пользователя из токена для владельца черновика и updatedBy
func currentUserName(c *gin.Context) string {
	if user, ok := middleware.CurrentUser(c); ok {
		return user.Name()
	}
	return ""
}

// fieldEdit правка одного поля черновика или его строки
type fieldEdit struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value"`
}

// decodedValue разбирает значение без потери точности чисел
func (e fieldEdit) decodedValue() (interface{}, error) {
	if len(bytes.TrimSpace(e.Value)) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(e.Value))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// bindFieldEdit читает правку поля; при ошибке отвечает 400
func bindFieldEdit(c *gin.Context) (string, interface{}, bool) {
	var edit fieldEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное тело запроса"})
		return "", nil, false
	}
	value, err := edit.decodedValue()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное значение поля " + edit.Field})
		return "", nil, false
	}
	return edit.Field, value, true
}

// respondList отдает список справочника
func respondList[T any](c *gin.Context, load func(ctx context.Context) ([]T, error)) {
	items, err := load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}
