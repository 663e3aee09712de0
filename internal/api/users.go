package api

import (
	"github.com/gin-gonic/gin"

	"github.com/easeaico/companion-chat/internal/types"
)

func (h *handler) getPreferences(c *gin.Context) {
	result, err := h.Users.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) updatePreferences(c *gin.Context) {
	var prefs types.Preferences
	if err := bindJSON(c, &prefs); err != nil {
		fail(c, err)
		return
	}
	result, err := h.Users.Update(c.Request.Context(), currentUser(c), prefs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) preferencesSchema(c *gin.Context) {
	ok(c, h.Users.Schema())
}
