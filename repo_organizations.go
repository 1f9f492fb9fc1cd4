package orgauth

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Organizations interface {
	repository.Repository[*Organization]

	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Organization, error)
}

type organizations struct {
	repository.Repository[*Organization]
	db *bun.DB
}

var _ Organizations = (*organizations)(nil)

func NewOrganizationsRepository(db *bun.DB) Organizations {
	repo := repository.NewRepository[*Organization](db, repository.ModelHandlers[*Organization]{
		NewRecord: func() *Organization { return &Organization{} },
		GetID: func(o *Organization) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Organization, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	return &organizations{
		Repository: repo,
		db:         db,
	}
}

func (o *organizations) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return o.GetBySlugTx(ctx, o.db, slug)
}

func (o *organizations) GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Organization, error) {
	record := &Organization{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.slug = ?", strings.ToLower(strings.TrimSpace(slug))).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"slug": slug,
				})
		}
		return nil, err
	}

	return record, nil
}
