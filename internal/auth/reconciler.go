package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/database"
	"github.com/jharmon96/inkwell/internal/models"
)

// Reconciler maps a verified external identity onto a local user record,
// linking by email or creating a fresh active account.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler constructs a Reconciler.
func NewReconciler(db *gorm.DB) (*Reconciler, error) {
	if db == nil {
		return nil, errors.New("reconciler: db is required")
	}
	return &Reconciler{db: db}, nil
}

// Reconcile returns the user owning identity.Email, creating one when absent,
// and reports whether a new account was created. Existing accounts are
// returned unchanged: names and password fields are never overwritten by a
// Google login. Creation races on the unique email index resolve to a single
// winner; the loser re-reads and returns that row.
func (r *Reconciler) Reconcile(ctx context.Context, identity *ExternalIdentity) (*models.User, bool, error) {
	if identity == nil {
		return nil, false, errors.New("reconciler: identity is required")
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, false, errors.New("reconciler: identity email is required")
	}

	if user, err := r.find(ctx, email); err == nil {
		return user, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user := &models.User{
		Email:     email,
		FirstName: identity.GivenName,
		LastName:  identity.FamilyName,
		// Google-originated accounts are active immediately and carry no
		// usable password hash.
		IsActive:     true,
		PasswordHash: nil,
	}

	err := r.db.WithContext(ctx).Create(user).Error
	if err == nil {
		return user, true, nil
	}

	if database.IsUniqueConstraintError(err) {
		winner, findErr := r.find(ctx, email)
		if findErr == nil {
			return winner, false, nil
		}
	}

	return nil, false, fmt.Errorf("reconciler: create user: %w", err)
}

func (r *Reconciler) find(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
