package handlers

import (
	"errors"
	"log"
	"net/http"

	"papertrade/database"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Username     string `form:"username"`
	Password     string `form:"password"`
	Confirmation string `form:"confirmation"`
}

type LoginInput struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *Handler) RegisterForm(c *gin.Context) {
	render(c, "register.html", "Register", nil)
}

func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		apology(c, http.StatusBadRequest, "invalid form")
		return
	}

	if input.Username == "" {
		apology(c, http.StatusBadRequest, "must provide username")
		return
	}
	if input.Password == "" {
		apology(c, http.StatusBadRequest, "must provide password")
		return
	}
	if input.Password != input.Confirmation {
		apology(c, http.StatusBadRequest, "passwords do not match")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		serverError(c, err)
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), input.Username, string(hashedPassword))
	if errors.Is(err, database.ErrUsernameTaken) {
		apology(c, http.StatusBadRequest, "username already exists")
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	if err := h.sessions.Clear(c); err != nil {
		log.Printf("register: clearing previous session: %v", err)
	}
	if err := h.sessions.Start(c, user.ID); err != nil {
		serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Login always forgets the current session first, so visiting the page
// forces a fresh log in.
func (h *Handler) Login(c *gin.Context) {
	if err := h.sessions.Clear(c); err != nil {
		log.Printf("login: clearing session: %v", err)
	}

	if c.Request.Method != http.MethodPost {
		render(c, "login.html", "Log In", nil)
		return
	}

	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		apology(c, http.StatusForbidden, "invalid form")
		return
	}
	if input.Username == "" {
		apology(c, http.StatusForbidden, "must provide username")
		return
	}
	if input.Password == "" {
		apology(c, http.StatusForbidden, "must provide password")
		return
	}

	user, err := h.store.UserByUsername(c.Request.Context(), input.Username)
	if err != nil && !errors.Is(err, database.ErrUserNotFound) {
		serverError(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(input.Password)) != nil {
		apology(c, http.StatusForbidden, "invalid username and/or password")
		return
	}

	if err := h.sessions.Start(c, user.ID); err != nil {
		serverError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Clear(c); err != nil {
		log.Printf("logout: %v", err)
	}
	c.Redirect(http.StatusFound, "/")
}
