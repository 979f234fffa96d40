package handlers

import (
	"errors"
	"log"
	"net/http"

	"papertrade/database"
	"papertrade/market"
	"papertrade/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// quoteWorkers bounds concurrent quote lookups while valuing a portfolio.
const quoteWorkers = 4

type TradeInput struct {
	Symbol string `form:"symbol"`
	Shares string `form:"shares"`
}

// Index shows the user's holdings valued at live prices, plus cash.
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	user, err := h.store.UserByID(ctx, userID)
	if errors.Is(err, database.ErrUserNotFound) {
		if err := h.sessions.Clear(c); err != nil {
			log.Printf("index: clearing session of missing user %d: %v", userID, err)
		}
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	positions, err := h.store.Positions(ctx, userID)
	if err != nil {
		serverError(c, err)
		return
	}

	holdings := make([]models.Holding, len(positions))
	var g errgroup.Group
	g.SetLimit(quoteWorkers)
	for i, p := range positions {
		g.Go(func() error {
			holding := models.Holding{Symbol: p.Symbol, Name: p.Symbol, Shares: p.Shares, Price: decimal.Zero}
			if q, ok := h.quotes.Lookup(ctx, p.Symbol); ok {
				holding.Price = decimal.NewFromFloat(q.Price)
				if q.Name != "" {
					holding.Name = q.Name
				}
			}
			holding.Total = holding.Price.Mul(decimal.NewFromInt(p.Shares))
			holdings[i] = holding
			return nil
		})
	}
	g.Wait()

	grandTotal := user.Cash
	for _, holding := range holdings {
		grandTotal = grandTotal.Add(holding.Total)
	}

	render(c, "index.html", "Portfolio", gin.H{
		"holdings":   holdings,
		"cash":       user.Cash,
		"grandTotal": grandTotal,
	})
}

func (h *Handler) BuyForm(c *gin.Context) {
	render(c, "buy.html", "Buy", nil)
}

func (h *Handler) Buy(c *gin.Context) {
	var input TradeInput
	shares, ok := validateTrade(c, &input)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	quote, ok := h.quotes.Lookup(ctx, input.Symbol)
	if !ok {
		apology(c, http.StatusBadRequest, "invalid symbol")
		return
	}

	err := h.store.Buy(ctx, currentUser(c), quote.Symbol, shares, decimal.NewFromFloat(quote.Price))
	switch {
	case errors.Is(err, database.ErrInsufficientFunds):
		apology(c, http.StatusBadRequest, "can't afford")
		return
	case err != nil:
		serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// SellForm lists the symbols the user currently owns.
func (h *Handler) SellForm(c *gin.Context) {
	positions, err := h.store.Positions(c.Request.Context(), currentUser(c))
	if err != nil {
		serverError(c, err)
		return
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	render(c, "sell.html", "Sell", gin.H{"symbols": symbols})
}

func (h *Handler) Sell(c *gin.Context) {
	var input TradeInput
	shares, ok := validateTrade(c, &input)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	userID := currentUser(c)
	symbol := market.NormalizeSymbol(input.Symbol)

	owned, err := h.store.OwnedShares(ctx, userID, symbol)
	if err != nil {
		serverError(c, err)
		return
	}
	if shares > owned {
		apology(c, http.StatusBadRequest, "too many shares")
		return
	}

	quote, ok := h.quotes.Lookup(ctx, symbol)
	if !ok {
		apology(c, http.StatusBadRequest, "invalid symbol")
		return
	}

	err = h.store.Sell(ctx, userID, symbol, shares, decimal.NewFromFloat(quote.Price))
	switch {
	case errors.Is(err, database.ErrInsufficientShares):
		apology(c, http.StatusBadRequest, "too many shares")
		return
	case err != nil:
		serverError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) History(c *gin.Context) {
	txs, err := h.store.History(c.Request.Context(), currentUser(c))
	if err != nil {
		serverError(c, err)
		return
	}
	render(c, "history.html", "History", gin.H{"transactions": txs})
}

// validateTrade binds a buy or sell form and checks, in order, that a symbol
// was given, that shares was given and that it is a positive whole number.
// On failure it has already written the apology.
func validateTrade(c *gin.Context, input *TradeInput) (int64, bool) {
	if err := c.ShouldBind(input); err != nil {
		apology(c, http.StatusBadRequest, "invalid form")
		return 0, false
	}
	if input.Symbol == "" {
		apology(c, http.StatusBadRequest, "must provide symbol")
		return 0, false
	}
	if input.Shares == "" {
		apology(c, http.StatusBadRequest, "must provide shares")
		return 0, false
	}
	shares, ok := ParseShares(input.Shares)
	if !ok {
		apology(c, http.StatusBadRequest, "shares must be a positive integer")
		return 0, false
	}
	return shares, true
}
