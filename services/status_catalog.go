package services

import (
	"strings"

	"portcontracts/models"
)

// StatusCatalog отвечает на вопросы о статусах договора по справочнику.
// Признак "завершен" берется из справочника, а не из литерала кода.
type StatusCatalog struct {
	statuses []models.ContractStatus
	byCode   map[string]models.ContractStatus
}

// NewStatusCatalog создает каталог из записей справочника
func NewStatusCatalog(statuses []models.ContractStatus) *StatusCatalog {
	c := &StatusCatalog{
		statuses: make([]models.ContractStatus, 0, len(statuses)),
		byCode:   make(map[string]models.ContractStatus, len(statuses)),
	}
	for _, s := range statuses {
		key := catalogKey(s.Code)
		if key == "" {
			continue
		}
		if _, dup := c.byCode[key]; dup {
			continue
		}
		c.byCode[key] = s
		c.statuses = append(c.statuses, s)
	}
	return c
}

// Statuses возвращает записи справочника в исходном порядке
func (c *StatusCatalog) Statuses() []models.ContractStatus {
	if c == nil {
		return nil
	}
	out := make([]models.ContractStatus, len(c.statuses))
	copy(out, c.statuses)
	return out
}

// Lookup ищет запись по коду без учета регистра
func (c *StatusCatalog) Lookup(code string) (models.ContractStatus, bool) {
	if c == nil {
		return models.ContractStatus{}, false
	}
	s, ok := c.byCode[catalogKey(code)]
	return s, ok
}

// KindOf возвращает вид статуса. Без справочника вид определяется по самому коду.
func (c *StatusCatalog) KindOf(code string) models.StatusKind {
	if s, ok := c.Lookup(code); ok {
		if s.Kind == "" {
			return models.ParseStatusKind(s.Code)
		}
		return s.Kind
	}
	if c == nil || len(c.statuses) == 0 {
		return models.ParseStatusKind(code)
	}
	return models.StatusKindUnknown
}

func (c *StatusCatalog) IsCompleted(code string) bool {
	return c.KindOf(code) == models.StatusKindCompleted
}

func (c *StatusCatalog) IsNotStarted(code string) bool {
	return c.KindOf(code) == models.StatusKindNotStarted
}

func (c *StatusCatalog) IsCancelled(code string) bool {
	return c.KindOf(code) == models.StatusKindCancelled
}

// Normalize приводит код к написанию из справочника; неизвестный код возвращается как есть
func (c *StatusCatalog) Normalize(code string) string {
	if s, ok := c.Lookup(code); ok {
		return s.Code
	}
	return strings.TrimSpace(code)
}

// InitialCode код статуса нового договора
func (c *StatusCatalog) InitialCode() string {
	return c.firstOfKind(models.StatusKindNotStarted)
}

// CancelledCode код статуса, в который переводится договор вместо удаления
func (c *StatusCatalog) CancelledCode() string {
	return c.firstOfKind(models.StatusKindCancelled)
}

func (c *StatusCatalog) firstOfKind(kind models.StatusKind) string {
	if c != nil {
		for _, s := range c.statuses {
			if c.KindOf(s.Code) == kind {
				return s.Code
			}
		}
	}
	return string(kind)
}

func catalogKey(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
