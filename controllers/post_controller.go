package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/postboard/middleware"
	"github.com/cppla/postboard/models"
	"github.com/cppla/postboard/services"
	"github.com/cppla/postboard/utils"
)

// PostStore is the post lifecycle as the HTTP layer uses it.
type PostStore interface {
	List(ctx context.Context, page int) (services.Page[models.Post], error)
	ListByAuthor(ctx context.Context, userID uint, page int) (services.Page[models.Post], error)
	Get(ctx context.Context, id uint) (models.Post, error)
	Create(ctx context.Context, who services.Identity, in services.PostInput) (models.Post, error)
	Update(ctx context.Context, who services.Identity, id uint, patch services.PostUpdate) (models.Post, error)
	Delete(ctx context.Context, who services.Identity, id uint) error
}

// Uploader stores post images.
type Uploader interface {
	Upload(ctx context.Context, who services.Identity, fh *multipart.FileHeader) (models.Asset, error)
}

// PostController manages CRUD operations for posts and their images.
type PostController struct {
	posts  PostStore
	assets Uploader
	log    *zap.Logger
}

// NewPostController creates a new PostController instance.
func NewPostController(posts PostStore, assets Uploader, logger *zap.Logger) *PostController {
	return &PostController{posts: posts, assets: assets, log: logger}
}

type postUpdateRequest struct {
	Title      *string `json:"title"`
	Subtitle   *string `json:"subtitle"`
	Body       *string `json:"body"`
	Image      *string `json:"image"`
	ClearImage bool    `json:"clear_image"`
}

// ListPosts returns one page of posts, five per page, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, err := p.posts.List(ctx.Request.Context(), parsePage(ctx))
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, page)
}

// ListUserPosts returns one page of the posts written by a user.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	userID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, err := p.posts.ListByAuthor(ctx.Request.Context(), userID, parsePage(ctx))
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, page)
}

// GetPost returns one post.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), id)
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, post)
}

// CreatePost accepts JSON or a multipart form with an optional "image" file.
func (p *PostController) CreatePost(ctx *gin.Context) {
	who := middleware.CurrentIdentity(ctx)
	var req services.PostInput

	if isMultipart(ctx) {
		req.Title = ctx.PostForm("title")
		req.Subtitle = ctx.PostForm("subtitle")
		req.Body = ctx.PostForm("body")
		url, ok := p.uploadFormImage(ctx, who)
		if !ok {
			return
		}
		req.Image = url
	} else if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	post, err := p.posts.Create(ctx.Request.Context(), who, req)
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Created(ctx, post.Path(), post)
}

// UpdatePost overwrites the fields present in the request. Only the author may do this.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	who := middleware.CurrentIdentity(ctx)
	var patch services.PostUpdate

	if isMultipart(ctx) {
		patch.Title = formValue(ctx, "title")
		patch.Subtitle = formValue(ctx, "subtitle")
		patch.Body = formValue(ctx, "body")
		patch.ClearImage, _ = strconv.ParseBool(ctx.PostForm("clear_image"))
		if !patch.ClearImage {
			url, ok := p.uploadFormImage(ctx, who)
			if !ok {
				return
			}
			if url != "" {
				patch.Image = &url
			}
		}
	} else {
		var req postUpdateRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
			return
		}
		patch = services.PostUpdate{
			Title:      req.Title,
			Subtitle:   req.Subtitle,
			Body:       req.Body,
			Image:      req.Image,
			ClearImage: req.ClearImage,
		}
	}

	post, err := p.posts.Update(ctx.Request.Context(), who, id, patch)
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post. Only the author may do this.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "deleted": true})
}

// UploadImage stores an image for a later post create or update.
func (p *PostController) UploadImage(ctx *gin.Context) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	asset, err := p.assets.Upload(ctx.Request.Context(), middleware.CurrentIdentity(ctx), fh)
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return
	}
	utils.Created(ctx, asset.URL, gin.H{"url": asset.URL, "content_type": asset.ContentType, "size": asset.Size})
}

// uploadFormImage stores the optional "image" form file and returns its URL.
func (p *PostController) uploadFormImage(ctx *gin.Context, who services.Identity) (string, bool) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		// no file part; a plain "image" field may still carry an uploaded URL
		return strings.TrimSpace(ctx.PostForm("image")), true
	}
	asset, err := p.assets.Upload(ctx.Request.Context(), who, fh)
	if err != nil {
		respondServiceError(ctx, p.log, err)
		return "", false
	}
	return asset.URL, true
}

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.ContentType(), "multipart/form-data")
}

// formValue distinguishes an absent form field (nil) from an empty one.
func formValue(ctx *gin.Context, key string) *string {
	if v, ok := ctx.GetPostForm(key); ok {
		return &v
	}
	return nil
}
