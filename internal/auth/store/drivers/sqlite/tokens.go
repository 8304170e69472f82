package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

type otpsRepo struct {
	db dbtx
}

func (r *otpsRepo) CreateOtp(ctx context.Context, o *domain.Otp) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otps (id, user_id, purpose, secret, expires_at, verified_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, string(o.Purpose), o.Secret, toNanos(o.ExpiresAt), toNullNanos(o.VerifiedAt), toNanos(o.CreatedAt),
	)
	return mapWriteErr(err)
}

func (r *otpsRepo) GetLatestOtp(ctx context.Context, userID string, purpose domain.OtpPurpose) (*domain.Otp, error) {
	var (
		o                domain.Otp
		rawPurpose       string
		expires, created int64
		verified         sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, purpose, secret, expires_at, verified_at, created_at
		   FROM otps WHERE user_id = ? AND purpose = ?
		  ORDER BY created_at DESC, id DESC LIMIT 1`, userID, string(purpose),
	).Scan(&o.ID, &o.UserID, &rawPurpose, &o.Secret, &expires, &verified, &created)
	if err != nil {
		return nil, mapNotFound(err)
	}
	o.Purpose = domain.OtpPurpose(rawPurpose)
	o.ExpiresAt = fromNanos(expires)
	o.VerifiedAt = fromNullNanos(verified)
	o.CreatedAt = fromNanos(created)
	return &o, nil
}

func (r *otpsRepo) MarkOtpVerified(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE otps SET verified_at = ? WHERE id = ? AND verified_at IS NULL`, toNanos(at), id))
}

func (r *otpsRepo) DeleteUserOtps(ctx context.Context, userID string, purpose domain.OtpPurpose) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE user_id = ? AND purpose = ?`, userID, string(purpose))
	return err
}

func (r *otpsRepo) DeleteExpiredOtps(ctx context.Context, before time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < ?`, toNanos(before)))
}

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, toNanos(t.ExpiresAt), toNullNanos(t.RevokedAt), toNanos(t.CreatedAt),
	)
	return mapWriteErr(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	var (
		t                domain.RefreshToken
		expires, created int64
		revoked          sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		   FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &revoked, &created)
	if err != nil {
		return nil, mapNotFound(err)
	}
	t.ExpiresAt = fromNanos(expires)
	t.RevokedAt = fromNullNanos(revoked)
	t.CreatedAt = fromNanos(created)
	return &t, nil
}

// RevokeRefreshToken keeps the first revocation time.
func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`, toNanos(at), id))
}

func (r *refreshTokensRepo) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, before time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ? OR revoked_at IS NOT NULL`, toNanos(before)))
}

type emailVerificationsRepo struct {
	db dbtx
}

func (r *emailVerificationsRepo) CreateEmailVerification(ctx context.Context, v *domain.EmailVerification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_verifications (id, email, code, expires_at, verified_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Email, v.Code.String(), toNanos(v.ExpiresAt), toNullNanos(v.VerifiedAt), toNanos(v.CreatedAt),
	)
	return mapWriteErr(err)
}

func (r *emailVerificationsRepo) GetEmailVerification(ctx context.Context, email, code string) (*domain.EmailVerification, error) {
	var (
		v                domain.EmailVerification
		rawCode          string
		expires, created int64
		verified         sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, code, expires_at, verified_at, created_at
		   FROM email_verifications WHERE email = ? AND code = ?
		  ORDER BY created_at DESC, id DESC LIMIT 1`, email, code,
	).Scan(&v.ID, &v.Email, &rawCode, &expires, &verified, &created)
	if err != nil {
		return nil, mapNotFound(err)
	}
	c, err := domain.NewVerificationCode(rawCode)
	if err != nil {
		return nil, err
	}
	v.Code = c
	v.ExpiresAt = fromNanos(expires)
	v.VerifiedAt = fromNullNanos(verified)
	v.CreatedAt = fromNanos(created)
	return &v, nil
}

func (r *emailVerificationsRepo) MarkEmailVerified(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE email_verifications SET verified_at = ? WHERE id = ?`, toNanos(at), id))
}

func (r *emailVerificationsRepo) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_verifications WHERE email = ? AND verified_at IS NOT NULL`, email,
	).Scan(&n)
	return n > 0, err
}

func (r *emailVerificationsRepo) DeletePendingEmailVerifications(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_verifications WHERE email = ? AND verified_at IS NULL`, email)
	return err
}

// DeleteExpiredEmailVerifications keeps verified rows; they record that the
// address was confirmed.
func (r *emailVerificationsRepo) DeleteExpiredEmailVerifications(ctx context.Context, before time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM email_verifications WHERE expires_at < ? AND verified_at IS NULL`, toNanos(before)))
}

type passwordResetsRepo struct {
	db dbtx
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, p *domain.PasswordReset) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_resets (id, user_id, email, token_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Email, p.TokenHash, toNanos(p.ExpiresAt), toNullNanos(p.UsedAt), toNanos(p.CreatedAt),
	)
	return mapWriteErr(err)
}

func (r *passwordResetsRepo) GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordReset, error) {
	var (
		p                domain.PasswordReset
		expires, created int64
		used             sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, token_hash, expires_at, used_at, created_at
		   FROM password_resets WHERE token_hash = ?`, hash,
	).Scan(&p.ID, &p.UserID, &p.Email, &p.TokenHash, &expires, &used, &created)
	if err != nil {
		return nil, mapNotFound(err)
	}
	p.ExpiresAt = fromNanos(expires)
	p.UsedAt = fromNullNanos(used)
	p.CreatedAt = fromNanos(created)
	return &p, nil
}

func (r *passwordResetsRepo) MarkPasswordResetUsed(ctx context.Context, id string, at time.Time) error {
	return requireAffected(r.db.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`, toNanos(at), id))
}

func (r *passwordResetsRepo) DeletePendingPasswordResets(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE user_id = ? AND used_at IS NULL`, userID)
	return err
}

func (r *passwordResetsRepo) DeleteExpiredPasswordResets(ctx context.Context, before time.Time) (int64, error) {
	return affected(r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ?`, toNanos(before)))
}
