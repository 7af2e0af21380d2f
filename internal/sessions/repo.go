package sessions

import (
	"context"

	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
)

// Repository is the read-only store directory. Sessions are written by the
// embedded app during OAuth; the connector only ever looks them up.
type Repository interface {
	GetByShop(ctx context.Context, shop string) (*models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a session repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByShop(ctx context.Context, shop string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Where("shop = ?", shop).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no session for shop").
				WithDetails(map[string]any{"shop": shop})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session by shop")
	}
	return &session, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no session for id").
				WithDetails(map[string]any{"session_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session by id")
	}
	return &session, nil
}
