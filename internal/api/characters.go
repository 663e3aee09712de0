package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/companion-chat/internal/character"
	"github.com/easeaico/companion-chat/internal/types"
)

func (h *handler) createCharacter(c *gin.Context) {
	var card types.CharacterCard
	if err := bindJSON(c, &card); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Characters.Create(c.Request.Context(), currentUser(c), card)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, result)
}

func (h *handler) listCharacters(c *gin.Context) {
	result, err := h.Characters.List(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) searchCharacters(c *gin.Context) {
	result, err := h.Characters.Search(c.Request.Context(), currentUser(c), c.Query("keyword"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) popularCharacters(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Characters.Popular(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) getCharacter(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Characters.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) updateCharacter(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req character.UpdateRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Characters.Update(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) deleteCharacter(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Characters.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *handler) cloneCharacter(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Characters.Clone(c.Request.Context(), currentUser(c), id, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, result)
}

func (h *handler) testCharacter(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Characters.Test(c.Request.Context(), currentUser(c), id, req.Message)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) setCharacterStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	status := types.CharacterStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	result, err := h.Characters.SetStatus(c.Request.Context(), currentUser(c), id, status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
