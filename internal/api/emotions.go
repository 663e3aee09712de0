package api

import "github.com/gin-gonic/gin"

func (h *handler) analyzeMessage(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Emotions.Analyze(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) messageEmotion(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Emotions.MessageEmotion(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) emotionStats(c *gin.Context) {
	result, err := h.Emotions.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

func (h *handler) emotionTrend(c *gin.Context) {
	days, err := intQuery(c, "days")
	if err != nil {
		fail(c, err)
		return
	}
	result, err := h.Emotions.Trend(c.Request.Context(), currentUser(c), days)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
