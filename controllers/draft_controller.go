package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portcontracts/models"
	"portcontracts/services"
)

// DraftController ведет черновики договоров между запросами формы
type DraftController struct {
	contracts *services.ContractService
	drafts    *services.DraftStore
}

// NewDraftController создает новый экземпляр DraftController
func NewDraftController(contracts *services.ContractService, drafts *services.DraftStore) *DraftController {
	return &DraftController{
		contracts: contracts,
		drafts:    drafts,
	}
}

// draftCollection операции над одной коллекцией черновика
type draftCollection struct {
	add    func(*services.ContractSession) interface{}
	update func(*services.ContractSession, models.EntityRef, string, interface{}) error
	remove func(*services.ContractSession, models.EntityRef)
}

var draftCollections = map[string]draftCollection{
	"payment-terms": {
		add:    func(s *services.ContractSession) interface{} { return s.AddPaymentTerm() },
		update: (*services.ContractSession).UpdatePaymentTerm,
		remove: (*services.ContractSession).DeletePaymentTerm,
	},
	"expenses": {
		add:    func(s *services.ContractSession) interface{} { return s.AddExpense() },
		update: (*services.ContractSession).UpdateExpense,
		remove: (*services.ContractSession).DeleteExpense,
	},
	"members": {
		add:    func(s *services.ContractSession) interface{} { return s.AddMember() },
		update: (*services.ContractSession).UpdateMember,
		remove: (*services.ContractSession).DeleteMember,
	},
}

// draftView ответ с состоянием черновика и текущими ошибками проверки
type draftView struct {
	ID        uuid.UUID              `json:"id"`
	Draft     services.DraftContract `json:"draft"`
	Errors    []services.FieldError  `json:"errors"`
	CanDelete bool                   `json:"canDelete"`
	Added     interface{}            `json:"added,omitempty"`
}

type createDraftRequest struct {
	ContractID *uuid.UUID `json:"contractId"`
}

// RegisterRoutes регистрирует маршруты черновиков
func (dc *DraftController) RegisterRoutes(rg *gin.RouterGroup) {
	drafts := rg.Group("/drafts")
	drafts.POST("", dc.Create)
	drafts.GET("/:id", dc.Get)
	drafts.PATCH("/:id", dc.SetField)
	drafts.DELETE("/:id", dc.Discard)
	drafts.POST("/:id/commit", dc.Commit)
	for name, collection := range draftCollections {
		drafts.POST("/:id/"+name, dc.addRow(collection))
		drafts.PATCH("/:id/"+name+"/:ref", dc.updateRow(collection))
		drafts.DELETE("/:id/"+name+"/:ref", dc.deleteRow(collection))
	}
}

// Create открывает черновик нового договора или копию сохраненного
func (dc *DraftController) Create(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное тело запроса"})
		return
	}

	ctx := c.Request.Context()
	var (
		session *services.ContractSession
		err     error
	)
	if req.ContractID != nil {
		session, err = dc.contracts.OpenSession(ctx, *req.ContractID)
	} else {
		session, err = dc.contracts.NewSession(ctx)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	id := dc.drafts.Put(session, currentUserName(c))
	c.JSON(http.StatusCreated, draftView{
		ID:        id,
		Draft:     session.Snapshot(),
		Errors:    nonNilErrors(session.Validate()),
		CanDelete: session.CanDelete(),
	})
}

// Get возвращает состояние черновика
func (dc *DraftController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	snapshot, err := dc.drafts.Get(id, currentUserName(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dc.respondDraft(c, http.StatusOK, id, snapshot, nil)
}

// SetField меняет скалярное поле договора
func (dc *DraftController) SetField(c *gin.Context) {
	field, value, ok := bindFieldEdit(c)
	if !ok {
		return
	}
	dc.edit(c, func(s *services.ContractSession) (interface{}, error) {
		return nil, s.SetScalarField(field, value)
	})
}

// Discard удаляет черновик без сохранения
func (dc *DraftController) Discard(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	// чужой черновик удалить нельзя
	if _, err := dc.drafts.Get(id, currentUserName(c)); err != nil {
		respondError(c, err)
		return
	}
	dc.drafts.Delete(id)
	c.Status(http.StatusNoContent)
}

// Commit проверяет и сохраняет черновик; после успешного сохранения черновик удаляется.
// При ошибках проверки черновик остается, чтобы пользователь мог их исправить.
func (dc *DraftController) Commit(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	snapshot, err := dc.drafts.Get(id, currentUserName(c))
	if err != nil {
		respondError(c, err)
		return
	}
	catalog, err := dc.contracts.Catalog(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	session := services.RestoreSession(snapshot, catalog)
	_, existing := session.ContractID()
	contract, err := dc.contracts.SaveSession(ctx, session)
	if err != nil {
		respondError(c, err)
		return
	}
	dc.drafts.Delete(id)

	status := http.StatusCreated
	if existing {
		status = http.StatusOK
	}
	c.JSON(status, contract)
}

func (dc *DraftController) addRow(collection draftCollection) gin.HandlerFunc {
	return func(c *gin.Context) {
		dc.edit(c, func(s *services.ContractSession) (interface{}, error) {
			return collection.add(s), nil
		})
	}
}

func (dc *DraftController) updateRow(collection draftCollection) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := refParam(c)
		if !ok {
			return
		}
		field, value, ok := bindFieldEdit(c)
		if !ok {
			return
		}
		dc.edit(c, func(s *services.ContractSession) (interface{}, error) {
			return nil, collection.update(s, ref, field, value)
		})
	}
}

func (dc *DraftController) deleteRow(collection draftCollection) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := refParam(c)
		if !ok {
			return
		}
		dc.edit(c, func(s *services.ContractSession) (interface{}, error) {
			collection.remove(s, ref)
			return nil, nil
		})
	}
}

// edit применяет правку к черновику и отвечает его новым состоянием
func (dc *DraftController) edit(c *gin.Context, fn func(*services.ContractSession) (interface{}, error)) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	catalog, err := dc.contracts.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	var added interface{}
	snapshot, err := dc.drafts.Update(id, currentUserName(c), catalog, func(s *services.ContractSession) error {
		var err error
		added, err = fn(s)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	dc.respondDraftWithCatalog(c, http.StatusOK, id, snapshot, catalog, added)
}

func (dc *DraftController) respondDraft(c *gin.Context, status int, id uuid.UUID, snapshot services.DraftContract, added interface{}) {
	catalog, err := dc.contracts.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dc.respondDraftWithCatalog(c, status, id, snapshot, catalog, added)
}

func (dc *DraftController) respondDraftWithCatalog(c *gin.Context, status int, id uuid.UUID, snapshot services.DraftContract, catalog *services.StatusCatalog, added interface{}) {
	session := services.RestoreSession(snapshot, catalog)
	c.JSON(status, draftView{
		ID:        id,
		Draft:     snapshot,
		Errors:    nonNilErrors(session.Validate()),
		CanDelete: session.CanDelete(),
		Added:     added,
	})
}

// refParam разбирает ссылку на строку черновика: сохраненный ID или временную ссылку
func refParam(c *gin.Context) (models.EntityRef, bool) {
	ref, err := models.ParseEntityRef(c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверная ссылка на строку"})
		return models.EntityRef{}, false
	}
	return ref, true
}

func nonNilErrors(errs []services.FieldError) []services.FieldError {
	if errs == nil {
		return []services.FieldError{}
	}
	return errs
}
