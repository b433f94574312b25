package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postboard/utils"
)

// Feature is one entry of the about page.
type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var aboutFeatures = []Feature{
	{Title: "Modern Framework", Description: "Built with Django, a high-level Python web framework.", Icon: "bi-code-slash"},
	{Title: "Responsive Design", Description: "Mobile-first design with Bootstrap for all devices.", Icon: "bi-phone"},
	{Title: "Secure & Scalable", Description: "Enterprise-grade security and scalability features.", Icon: "bi-shield-check"},
}

// PagesController serves the static informational pages.
type PagesController struct{}

func NewPagesController() *PagesController { return &PagesController{} }

// Home returns the landing page content.
func (p *PagesController) Home(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title":   "Welcome to My Django Project",
		"message": "Your Django project is set up and ready to go!",
	})
}

// About returns the about page with its feature list.
func (p *PagesController) About(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"title":       "About Us",
		"description": "Learn more about our Django project and what we do.",
		"features":    aboutFeatures,
	})
}

// Health is a plain-text liveness probe.
func (p *PagesController) Health(ctx *gin.Context) {
	ctx.String(http.StatusOK, "OK")
}
