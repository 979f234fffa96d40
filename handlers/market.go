package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuoteInput struct {
	Symbol string `form:"symbol"`
}

func (h *Handler) QuoteForm(c *gin.Context) {
	render(c, "quote.html", "Quote", nil)
}

func (h *Handler) Quote(c *gin.Context) {
	var input QuoteInput
	if err := c.ShouldBind(&input); err != nil || input.Symbol == "" {
		apology(c, http.StatusBadRequest, "must provide symbol")
		return
	}

	quote, ok := h.quotes.Lookup(c.Request.Context(), input.Symbol)
	if !ok {
		apology(c, http.StatusBadRequest, "invalid symbol")
		return
	}

	render(c, "quoted.html", "Quoted", gin.H{"quote": quote})
}
