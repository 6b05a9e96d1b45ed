package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/database"
	"github.com/jharmon96/inkwell/internal/models"
	apperrors "github.com/jharmon96/inkwell/pkg/errors"
)

var (
	// ErrSlugTaken indicates another post already uses the derived slug.
	ErrSlugTaken = apperrors.New("SLUG_TAKEN", "A post with this slug already exists", 409)
	// ErrAuthorEmailTaken indicates another author already uses the email.
	ErrAuthorEmailTaken = apperrors.New("AUTHOR_EMAIL_TAKEN", "An author with this email already exists", 409)
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a post title.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// CreateAuthorInput describes a new author profile.
type CreateAuthorInput struct {
	Name  string
	Title string
	Email string
	Bio   string
}

// CreatePostInput describes a new post.
type CreatePostInput struct {
	Title              string
	Slug               string
	AuthorID           string
	Content            string
	Excerpt            string
	MetaKeywords       string
	FeaturedImageRef   string
	FeaturedImageAlt   string
	FeaturedImageTitle string
	IsPublished        bool
}

// UpdatePostInput enumerates mutable post attributes.
type UpdatePostInput struct {
	Title        *string
	Content      *string
	Excerpt      *string
	MetaKeywords *string
	IsPublished  *bool
}

// BlogService manages authors, posts and comments. Authorization is decided
// by the caller through the permissions package; this service only moves data.
type BlogService struct {
	db *gorm.DB
}

// NewBlogService constructs a BlogService.
func NewBlogService(db *gorm.DB) (*BlogService, error) {
	if db == nil {
		return nil, errors.New("blog service: db is required")
	}
	return &BlogService{db: db}, nil
}

// CreateAuthor provisions a new author profile.
func (s *BlogService) CreateAuthor(ctx context.Context, input CreateAuthorInput) (*models.Author, error) {
	author := &models.Author{
		Name:  strings.TrimSpace(input.Name),
		Title: strings.TrimSpace(input.Title),
		Email: strings.ToLower(strings.TrimSpace(input.Email)),
		Bio:   input.Bio,
	}

	if err := s.db.WithContext(ctx).Create(author).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, ErrAuthorEmailTaken
		}
		return nil, fmt.Errorf("blog service: create author: %w", err)
	}

	return author, nil
}

// ListAuthors returns all author profiles.
func (s *BlogService) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	if err := s.db.WithContext(ctx).Order("name").Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("blog service: list authors: %w", err)
	}
	return authors, nil
}

// GetAuthor loads a single author by id.
func (s *BlogService) GetAuthor(ctx context.Context, id string) (*models.Author, error) {
	var author models.Author
	err := s.db.WithContext(ctx).Take(&author, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blog service: load author: %w", err)
	}
	return &author, nil
}

// CreatePost stores a new post, deriving the slug from the title when absent.
func (s *BlogService) CreatePost(ctx context.Context, input CreatePostInput) (*models.Post, error) {
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(input.Title)
	}
	if slug == "" {
		return nil, apperrors.NewBadRequest("title must produce a non-empty slug")
	}

	if _, err := s.GetAuthor(ctx, input.AuthorID); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:              strings.TrimSpace(input.Title),
		Slug:               slug,
		AuthorID:           input.AuthorID,
		Content:            input.Content,
		Excerpt:            strings.TrimSpace(input.Excerpt),
		MetaKeywords:       strings.TrimSpace(input.MetaKeywords),
		FeaturedImageRef:   strings.TrimSpace(input.FeaturedImageRef),
		FeaturedImageAlt:   strings.TrimSpace(input.FeaturedImageAlt),
		FeaturedImageTitle: strings.TrimSpace(input.FeaturedImageTitle),
		IsPublished:        input.IsPublished,
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("blog service: create post: %w", err)
	}

	return post, nil
}

// ListPosts returns posts, restricted to published ones unless the caller may
// manage posts.
func (s *BlogService) ListPosts(ctx context.Context, includeUnpublished bool) ([]models.Post, error) {
	query := s.db.WithContext(ctx).Preload("Author").Order("created_at DESC")
	if !includeUnpublished {
		query = query.Where("is_published = ?", true)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("blog service: list posts: %w", err)
	}
	return posts, nil
}

// GetPostBySlug loads a post by its slug.
func (s *BlogService) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Preload("Author").Take(&post, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blog service: load post: %w", err)
	}
	return &post, nil
}

// UpdatePost applies partial updates to a post.
func (s *BlogService) UpdatePost(ctx context.Context, id string, input UpdatePostInput) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Take(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blog service: load post: %w", err)
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.Excerpt != nil {
		updates["excerpt"] = strings.TrimSpace(*input.Excerpt)
	}
	if input.MetaKeywords != nil {
		updates["meta_keywords"] = strings.TrimSpace(*input.MetaKeywords)
	}
	if input.IsPublished != nil {
		updates["is_published"] = *input.IsPublished
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&post).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("blog service: update post: %w", err)
		}
	}

	return &post, nil
}

// DeletePost removes a post and its comments.
func (s *BlogService) DeletePost(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("blog service: delete comments: %w", err)
		}

		res := tx.Delete(&models.Post{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("blog service: delete post: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// CreateComment attaches a comment to a post on behalf of a user.
func (s *BlogService) CreateComment(ctx context.Context, postID, userID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("content is required")
	}

	var post models.Post
	err := s.db.WithContext(ctx).Take(&post, "id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blog service: load post: %w", err)
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}

	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("blog service: create comment: %w", err)
	}

	return comment, nil
}

// ListComments returns the comments on a post, oldest first.
func (s *BlogService) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("blog service: list comments: %w", err)
	}
	return comments, nil
}

// GetComment loads a single comment by id.
func (s *BlogService) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Take(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blog service: load comment: %w", err)
	}
	return &comment, nil
}

// UpdateComment rewrites a comment's content.
func (s *BlogService) UpdateComment(ctx context.Context, id, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequest("content is required")
	}

	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(comment).Update("content", content).Error; err != nil {
		return nil, fmt.Errorf("blog service: update comment: %w", err)
	}

	comment.Content = content
	return comment, nil
}

// DeleteComment removes a comment.
func (s *BlogService) DeleteComment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("blog service: delete comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
