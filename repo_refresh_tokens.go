package orgauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RefreshTokens interface {
	repository.Repository[*RefreshToken]

	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*RefreshToken, error)

	ClaimTx(ctx context.Context, tx bun.IDB, id uuid.UUID, revokedAt time.Time) (bool, error)
	Revoke(ctx context.Context, token string) error
	RevokeTx(ctx context.Context, tx bun.IDB, token string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
	RevokeAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error)

	SweepExpired(ctx context.Context, before time.Time) (int, error)
}

type refreshTokens struct {
	repository.Repository[*RefreshToken]
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	repo := repository.NewRepository[*RefreshToken](db, repository.ModelHandlers[*RefreshToken]{
		NewRecord: func() *RefreshToken { return &RefreshToken{} },
		GetID: func(r *RefreshToken) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *RefreshToken, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &refreshTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *refreshTokens) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	return r.GetByTokenTx(ctx, r.db, token)
}

func (r *refreshTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*RefreshToken, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &RefreshToken{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.token = ?", token).
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

// ClaimTx revokes the token if and only if it is still unrevoked. Two
// concurrent exchanges of the same token race on this update; exactly
// one sees an affected row and wins the rotation.
func (r *refreshTokens) ClaimTx(ctx context.Context, tx bun.IDB, id uuid.UUID, revokedAt time.Time) (bool, error) {
	res, err := tx.NewUpdate().Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", revokedAt).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
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

func (r *refreshTokens) Revoke(ctx context.Context, token string) error {
	return r.RevokeTx(ctx, r.db, token)
}

// RevokeTx is idempotent: revoking an already revoked or unknown token
// is not an error.
func (r *refreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, token string) error {
	_, err := tx.NewUpdate().Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", time.Now()).
		Where("token = ?", token).
		Where("revoked_at IS NULL").
		Exec(ctx)

	return err
}

func (r *refreshTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.RevokeAllForUserTx(ctx, r.db, userID)
}

func (r *refreshTokens) RevokeAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	res, err := tx.NewUpdate().Model((*RefreshToken)(nil)).
		Set("revoked_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("revoked_at IS NULL").
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

// SweepExpired deletes rows whose expiry is behind the given cutoff,
// revoked or not. Meant to run from a periodic job.
func (r *refreshTokens) SweepExpired(ctx context.Context, before time.Time) (int, error) {
	res, err := r.db.NewDelete().Model((*RefreshToken)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}
