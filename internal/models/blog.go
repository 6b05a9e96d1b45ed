package models

// Author is a blog author profile, managed by staff.
type Author struct {
	BaseModel

	Name  string `gorm:"not null;index" json:"name"`
	Title string `json:"title"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Bio   string `json:"bio"`
}

// Post is a blog article attributed to an Author.
type Post struct {
	BaseModel

	Title   string `gorm:"not null" json:"title"`
	Slug    string `gorm:"uniqueIndex;not null" json:"slug"`
	Content string `gorm:"not null" json:"content"`

	// Excerpt doubles as the SEO meta description.
	Excerpt      string `gorm:"size:160" json:"excerpt"`
	MetaKeywords string `json:"meta_keywords"`

	FeaturedImageRef   string `json:"featured_image_ref"`
	FeaturedImageAlt   string `json:"featured_image_alt"`
	FeaturedImageTitle string `json:"featured_image_title"`

	IsPublished bool `gorm:"default:false" json:"is_published"`

	AuthorID string  `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *Author `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// Comment is a reader comment on a post, owned by the commenting user.
type Comment struct {
	BaseModel

	Content string `gorm:"not null" json:"content"`

	PostID string `gorm:"type:uuid;not null;index" json:"post_id"`
	Post   *Post  `gorm:"foreignKey:PostID" json:"-"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
