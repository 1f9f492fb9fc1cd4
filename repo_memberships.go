package orgauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Memberships interface {
	repository.Repository[*Membership]

	GetByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error)
	GetByUserAndOrgTx(ctx context.Context, tx bun.IDB, userID, orgID uuid.UUID) (*Membership, error)
	GetByInvitationToken(ctx context.Context, token string) (*Membership, error)
	GetByInvitationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Membership, error)

	CreatePendingTx(ctx context.Context, tx bun.IDB, record *Membership) (*Membership, error)
	ClaimInvitationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, acceptedAt time.Time) (bool, error)

	ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	ListActiveForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Membership, error)
	CountActiveForOrganization(ctx context.Context, orgID uuid.UUID) (int, error)
	CountActiveForOrganizationTx(ctx context.Context, tx bun.IDB, orgID uuid.UUID) (int, error)
}

type memberships struct {
	repository.Repository[*Membership]
	db *bun.DB
}

var _ Memberships = (*memberships)(nil)

func NewMembershipsRepository(db *bun.DB) Memberships {
	repo := repository.NewRepository[*Membership](db, repository.ModelHandlers[*Membership]{
		NewRecord: func() *Membership { return &Membership{} },
		GetID: func(m *Membership) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Membership, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})

	return &memberships{
		Repository: repo,
		db:         db,
	}
}

func (m *memberships) GetByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	return m.GetByUserAndOrgTx(ctx, m.db, userID, orgID)
}

func (m *memberships) GetByUserAndOrgTx(ctx context.Context, tx bun.IDB, userID, orgID uuid.UUID) (*Membership, error) {
	record := &Membership{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.organization_id = ?", orgID).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id":         userID.String(),
					"organization_id": orgID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (m *memberships) GetByInvitationToken(ctx context.Context, token string) (*Membership, error) {
	return m.GetByInvitationTokenTx(ctx, m.db, token)
}

func (m *memberships) GetByInvitationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Membership, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Membership{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.invitation_token = ?", token).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (m *memberships) CreatePendingTx(ctx context.Context, tx bun.IDB, record *Membership) (*Membership, error) {
	if record.InvitationCreatedAt == nil {
		now := time.Now()
		record.InvitationCreatedAt = &now
	}
	record.Active = false
	record.InvitationAcceptedAt = nil

	return m.Repository.CreateTx(ctx, tx, record)
}

// ClaimInvitationTx marks the invitation accepted if and only if no one
// has accepted it yet. The conditional update decides the winner when
// two accepts race: exactly one sees a row change.
func (m *memberships) ClaimInvitationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, acceptedAt time.Time) (bool, error) {
	res, err := tx.NewUpdate().Model((*Membership)(nil)).
		Set("invitation_accepted_at = ?", acceptedAt).
		Set("is_active = ?", true).
		Set("updated_at = ?", acceptedAt).
		Where("id = ?", id).
		Where("invitation_accepted_at IS NULL").
		Where("deleted_at IS NULL").
		Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (m *memberships) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error) {
	return m.ListActiveForUserTx(ctx, m.db, userID)
}

func (m *memberships) ListActiveForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]*Membership, error) {
	var records []*Membership
	err := tx.NewSelect().Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.is_active = ?", true).
		Where("?TableAlias.deleted_at IS NULL").
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (m *memberships) CountActiveForOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	return m.CountActiveForOrganizationTx(ctx, m.db, orgID)
}

func (m *memberships) CountActiveForOrganizationTx(ctx context.Context, tx bun.IDB, orgID uuid.UUID) (int, error) {
	return tx.NewSelect().Model((*Membership)(nil)).
		Where("?TableAlias.organization_id = ?", orgID).
		Where("?TableAlias.is_active = ?", true).
		Where("?TableAlias.deleted_at IS NULL").
		Count(ctx)
}
