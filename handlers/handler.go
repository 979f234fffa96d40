package handlers

import (
	"log"
	"net/http"

	"papertrade/database"
	"papertrade/market"
	"papertrade/middleware"
	"papertrade/views"

	"github.com/gin-gonic/gin"
)

// Sessions starts, ends and resolves login sessions.
type Sessions interface {
	Start(c *gin.Context, userID uint) error
	Clear(c *gin.Context) error
	UserID(c *gin.Context) (uint, bool)
}

type Handler struct {
	store    *database.Store
	quotes   market.Provider
	sessions Sessions
}

func New(store *database.Store, quotes market.Provider, sessions Sessions) *Handler {
	return &Handler{store: store, quotes: quotes, sessions: sessions}
}

// Routes installs the pages, the no-cache headers and the login guard on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.SetHTMLTemplate(views.Templates())
	r.Use(middleware.NoCache())

	// Public routes
	r.GET("/register", h.RegisterForm)
	r.POST("/register", h.Register)
	r.GET("/login", h.Login)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	// Protected routes
	auth := r.Group("/")
	auth.Use(middleware.LoginRequired(h.sessions))
	{
		auth.GET("/", h.Index)
		auth.GET("/quote", h.QuoteForm)
		auth.POST("/quote", h.Quote)
		auth.GET("/buy", h.BuyForm)
		auth.POST("/buy", h.Buy)
		auth.GET("/sell", h.SellForm)
		auth.POST("/sell", h.Sell)
		auth.GET("/history", h.History)
	}
}

func render(c *gin.Context, view, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = title
	_, data["loggedIn"] = c.Get(middleware.UserIDKey)
	c.HTML(http.StatusOK, view, data)
}

// apology renders the error page with the given status.
func apology(c *gin.Context, code int, message string) {
	_, loggedIn := c.Get(middleware.UserIDKey)
	c.HTML(code, "apology.html", gin.H{
		"title":    "Apology",
		"code":     code,
		"message":  message,
		"loggedIn": loggedIn,
	})
}

func serverError(c *gin.Context, err error) {
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	apology(c, http.StatusInternalServerError, "something went wrong")
}

func currentUser(c *gin.Context) uint {
	return c.MustGet(middleware.UserIDKey).(uint)
}
