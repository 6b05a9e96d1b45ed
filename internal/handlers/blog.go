package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jharmon96/inkwell/internal/permissions"
	"github.com/jharmon96/inkwell/internal/services"
	"github.com/jharmon96/inkwell/pkg/errors"
	"github.com/jharmon96/inkwell/pkg/response"
)

// BlogHandler exposes authors, posts and comments over HTTP. Reads are
// public; writes are gated by the permissions package.
type BlogHandler struct {
	blog *services.BlogService
}

func NewBlogHandler(blog *services.BlogService) *BlogHandler {
	return &BlogHandler{blog: blog}
}

type createAuthorRequest struct {
	Name  string `json:"name" validate:"required,max=150"`
	Title string `json:"title" validate:"max=150"`
	Email string `json:"email" validate:"required,email"`
	Bio   string `json:"bio"`
}

// POST /api/blog/authors
func (h *BlogHandler) CreateAuthor(c *gin.Context) {
	if !permissions.CanManageAuthors(actorFromContext(c)) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	var req createAuthorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	author, err := h.blog.CreateAuthor(requestContext(c), services.CreateAuthorInput{
		Name:  req.Name,
		Title: req.Title,
		Email: req.Email,
		Bio:   req.Bio,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"author": author})
}

// GET /api/blog/authors
func (h *BlogHandler) ListAuthors(c *gin.Context) {
	authors, err := h.blog.ListAuthors(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"authors": authors})
}

// GET /api/blog/authors/:id
func (h *BlogHandler) GetAuthor(c *gin.Context) {
	author, err := h.blog.GetAuthor(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"author": author})
}

type createPostRequest struct {
	Title              string `json:"title" validate:"required,max=200"`
	Slug               string `json:"slug" validate:"max=200"`
	AuthorID           string `json:"author_id" validate:"required"`
	Content            string `json:"content" validate:"required"`
	Excerpt            string `json:"excerpt" validate:"max=160"`
	MetaKeywords       string `json:"meta_keywords" validate:"max=255"`
	FeaturedImageRef   string `json:"featured_image_ref"`
	FeaturedImageAlt   string `json:"featured_image_alt" validate:"max=150"`
	FeaturedImageTitle string `json:"featured_image_title" validate:"max=150"`
	IsPublished        bool   `json:"is_published"`
}

// POST /api/blog/posts
func (h *BlogHandler) CreatePost(c *gin.Context) {
	if !permissions.CanManagePosts(actorFromContext(c)) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	var req createPostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.blog.CreatePost(requestContext(c), services.CreatePostInput{
		Title:              req.Title,
		Slug:               req.Slug,
		AuthorID:           req.AuthorID,
		Content:            req.Content,
		Excerpt:            req.Excerpt,
		MetaKeywords:       req.MetaKeywords,
		FeaturedImageRef:   req.FeaturedImageRef,
		FeaturedImageAlt:   req.FeaturedImageAlt,
		FeaturedImageTitle: req.FeaturedImageTitle,
		IsPublished:        req.IsPublished,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"post": post})
}

// GET /api/blog/posts
func (h *BlogHandler) ListPosts(c *gin.Context) {
	includeUnpublished := permissions.CanManagePosts(actorFromContext(c))

	posts, err := h.blog.ListPosts(requestContext(c), includeUnpublished)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"posts": posts})
}

// GET /api/blog/posts/:slug
func (h *BlogHandler) GetPost(c *gin.Context) {
	post, err := h.blog.GetPostBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if !post.IsPublished && !permissions.CanManagePosts(actorFromContext(c)) {
		response.Error(c, errors.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"post": post})
}

type updatePostRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Content      *string `json:"content"`
	Excerpt      *string `json:"excerpt" validate:"omitempty,max=160"`
	MetaKeywords *string `json:"meta_keywords" validate:"omitempty,max=255"`
	IsPublished  *bool   `json:"is_published"`
}

// PATCH /api/blog/posts/:slug
func (h *BlogHandler) UpdatePost(c *gin.Context) {
	if !permissions.CanManagePosts(actorFromContext(c)) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	var req updatePostRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.blog.GetPostBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.blog.UpdatePost(requestContext(c), post.ID, services.UpdatePostInput{
		Title:        req.Title,
		Content:      req.Content,
		Excerpt:      req.Excerpt,
		MetaKeywords: req.MetaKeywords,
		IsPublished:  req.IsPublished,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"post": updated})
}

// DELETE /api/blog/posts/:slug
func (h *BlogHandler) DeletePost(c *gin.Context) {
	if !permissions.CanManagePosts(actorFromContext(c)) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	post, err := h.blog.GetPostBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.blog.DeletePost(requestContext(c), post.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/blog/posts/:slug/comments
func (h *BlogHandler) ListComments(c *gin.Context) {
	post, err := h.blog.GetPostBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	comments, err := h.blog.ListComments(requestContext(c), post.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"comments": comments})
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// POST /api/blog/posts/:slug/comments
func (h *BlogHandler) CreateComment(c *gin.Context) {
	actor := actorFromContext(c)
	if !permissions.CanCreateComment(actor) {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req commentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	post, err := h.blog.GetPostBySlug(requestContext(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}

	comment, err := h.blog.CreateComment(requestContext(c), post.ID, actor.UserID, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"comment": comment})
}

// PUT /api/blog/comments/:id
func (h *BlogHandler) UpdateComment(c *gin.Context) {
	if !permissions.CanEditComment(actorFromContext(c)) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	var req commentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	comment, err := h.blog.UpdateComment(requestContext(c), c.Param("id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"comment": comment})
}

// DELETE /api/blog/comments/:id
func (h *BlogHandler) DeleteComment(c *gin.Context) {
	comment, err := h.blog.GetComment(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if !permissions.CanDeleteComment(actorFromContext(c), comment.UserID) {
		response.Error(c, errors.ErrForbidden)
		return
	}

	if err := h.blog.DeleteComment(requestContext(c), comment.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
