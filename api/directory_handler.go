package api

import (
	"context"
	"net/http"

	"github.com/Almirante-Ming/Rose/directory"
	"github.com/Almirante-Ming/Rose/store"
	"github.com/gin-gonic/gin"
)

type DirectoryStore interface {
	ListPersons(ctx context.Context) ([]directory.Person, error)
	GetPerson(ctx context.Context, id int64) (directory.Person, error)
	InsertPerson(ctx context.Context, p directory.Person, passwordHash string) (directory.Person, error)
	UpdatePerson(ctx context.Context, p directory.Person, passwordHash string) (directory.Person, error)
	DeletePerson(ctx context.Context, id int64) error

	ListMachines(ctx context.Context) ([]directory.Machine, error)
	GetMachine(ctx context.Context, id int64) (directory.Machine, error)
	InsertMachine(ctx context.Context, m directory.Machine) (directory.Machine, error)
	UpdateMachine(ctx context.Context, m directory.Machine) (directory.Machine, error)
	DeleteMachine(ctx context.Context, id int64) error
}

// DirectoryHandler serves people and activities. Anyone logged in may read
// them; only admins write.
type DirectoryHandler struct {
	store DirectoryStore
}

func NewDirectoryHandler(store DirectoryStore) *DirectoryHandler {
	return &DirectoryHandler{store: store}
}

func (h *DirectoryHandler) Register(rg *gin.RouterGroup) {
	adminOnly := RequireLevel(2)

	rg.GET("/persons", h.ListPersons)
	rg.GET("/persons/:id", h.GetPerson)
	rg.POST("/persons", adminOnly, h.CreatePerson)
	rg.PUT("/persons/:id", adminOnly, h.UpdatePerson)
	rg.DELETE("/persons/:id", adminOnly, h.DeletePerson)

	rg.GET("/machines", h.ListMachines)
	rg.GET("/machines/:id", h.GetMachine)
	rg.POST("/machines", adminOnly, h.CreateMachine)
	rg.PUT("/machines/:id", adminOnly, h.UpdateMachine)
	rg.DELETE("/machines/:id", adminOnly, h.DeleteMachine)
}

func (h *DirectoryHandler) ListPersons(c *gin.Context) {
	persons, err := h.store.ListPersons(c.Request.Context())

	if err != nil {
		storeError(c, err, "person", "failed to get persons")
		return
	}

	c.JSON(http.StatusOK, persons)
}

func (h *DirectoryHandler) GetPerson(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	p, err := h.store.GetPerson(c.Request.Context(), id)

	if err != nil {
		storeError(c, err, "person", "failed to fetch person")
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *DirectoryHandler) CreatePerson(c *gin.Context) {
	p, hash, ok := bindPerson(c)

	if !ok {
		return
	}

	created, err := h.store.InsertPerson(c.Request.Context(), p, hash)

	if err != nil {
		storeError(c, err, "person", "failed to create person")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *DirectoryHandler) UpdatePerson(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	p, hash, ok := bindPerson(c)

	if !ok {
		return
	}

	p.ID = id

	updated, err := h.store.UpdatePerson(c.Request.Context(), p, hash)

	if err != nil {
		storeError(c, err, "person", "failed to update person")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *DirectoryHandler) DeletePerson(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	if err := h.store.DeletePerson(c.Request.Context(), id); err != nil {
		storeError(c, err, "person", "failed to delete person")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "person deleted"})
}

func (h *DirectoryHandler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())

	if err != nil {
		storeError(c, err, "machine", "failed to get machines")
		return
	}

	c.JSON(http.StatusOK, machines)
}

func (h *DirectoryHandler) GetMachine(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	m, err := h.store.GetMachine(c.Request.Context(), id)

	if err != nil {
		storeError(c, err, "machine", "failed to fetch machine")
		return
	}

	c.JSON(http.StatusOK, m)
}

func (h *DirectoryHandler) CreateMachine(c *gin.Context) {
	m, ok := bindMachine(c)

	if !ok {
		return
	}

	created, err := h.store.InsertMachine(c.Request.Context(), m)

	if err != nil {
		storeError(c, err, "machine", "failed to create machine")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *DirectoryHandler) UpdateMachine(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	m, ok := bindMachine(c)

	if !ok {
		return
	}

	m.ID = id

	updated, err := h.store.UpdateMachine(c.Request.Context(), m)

	if err != nil {
		storeError(c, err, "machine", "failed to update machine")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *DirectoryHandler) DeleteMachine(c *gin.Context) {
	id, ok := idParam(c, "id")

	if !ok {
		return
	}

	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		storeError(c, err, "machine", "failed to delete machine")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "machine deleted"})
}

func bindPerson(c *gin.Context) (directory.Person, string, bool) {
	var in directory.PersonInput

	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return directory.Person{}, "", false
	}

	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return directory.Person{}, "", false
	}

	var hash string

	if len(in.Password) > 0 {
		var err error

		if hash, err = store.HashPassword(in.Password); err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save person"})
			return directory.Person{}, "", false
		}
	}

	return directory.Person{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CPF:       in.CPF,
		BirthDate: in.BirthDate,
		Type:      in.Type,
	}, hash, true
}

func bindMachine(c *gin.Context) (directory.Machine, bool) {
	var in directory.MachineInput

	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to parse JSON body"})
		return directory.Machine{}, false
	}

	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return directory.Machine{}, false
	}

	return directory.Machine{Name: in.Name, Description: in.Description, State: in.State}, true
}
