/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface. It
 * contains all SQL for users, referrals, subscriptions, payouts and the transactions
 * ledger, including the multi-step operations that must be applied atomically.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - Lifecycle transitions use guarded UPDATEs (`WHERE status = ...`) so replays and
 *   concurrent calls resolve to no-ops instead of double-applying side effects.
 * - Uniqueness invariants (one referrer per user, one edge per pair, unique codes) are
 *   enforced by column constraints and surfaced as sentinel errors.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NeutranKhan/Refer2Earn-sub000/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindUserByID retrieves a user by their internal UUID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, external_id, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users WHERE id = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, userID))
}

// FindUserByExternalID resolves the identity provider's subject id to our user row.
func (r *PostgresRepository) FindUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	query := `
		SELECT id, external_id, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users WHERE external_id = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, externalID))
}

// FindUserByReferralCode resolves a referral code to its owner. Codes are matched
// case-insensitively and without surrounding whitespace.
func (r *PostgresRepository) FindUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	query := `
		SELECT id, external_id, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users WHERE upper(btrim(referral_code)) = upper(btrim($1))
	`
	user, err := r.scanUser(r.db.QueryRow(ctx, query, code))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrReferralCodeNotFound
	}
	return user, err
}

// CreateUser inserts a new user row with its generated referral code.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, external_id, referral_code, referred_by, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.ExternalID,
		user.ReferralCode,
		user.ReferredBy,
		user.IsAdmin,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *PostgresRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateReferralWithReferrer atomically claims the referred user's write-once referred_by
// slot and inserts the pending referral edge.
func (r *PostgresRepository) CreateReferralWithReferrer(ctx context.Context, referral *domain.Referral) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// The WHERE referred_by IS NULL guard makes the assignment first-writer-wins.
	claim, err := tx.Exec(ctx, `
		UPDATE users SET referred_by = $2, updated_at = NOW()
		WHERE id = $1 AND referred_by IS NULL
	`, referral.ReferredUserID, referral.ReferrerID)
	if err != nil {
		return err
	}
	if claim.RowsAffected() == 0 {
		return ErrAlreadyReferred
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_user_id, status, credit_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`,
		referral.ID,
		referral.ReferrerID,
		referral.ReferredUserID,
		referral.Status,
		referral.CreditAmount,
	).Scan(&referral.CreatedAt, &referral.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReferral
		}
		return err
	}

	return tx.Commit(ctx)
}

// FindReferralByPair retrieves the referral edge for an ordered (referrer, referred) pair.
func (r *PostgresRepository) FindReferralByPair(ctx context.Context, referrerID, referredUserID uuid.UUID) (*domain.Referral, error) {
	var ref domain.Referral
	query := `
		SELECT id, referrer_id, referred_user_id, status, credit_amount, activated_at, created_at, updated_at
		FROM referrals
		WHERE referrer_id = $1 AND referred_user_id = $2
	`
	err := r.db.QueryRow(ctx, query, referrerID, referredUserID).Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.ReferredUserID,
		&ref.Status,
		&ref.CreditAmount,
		&ref.ActivatedAt,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &ref, nil
}

// ActivateReferralWithCredit transitions a pending referral to active and credits the
// referrer in a single database transaction. The guarded UPDATE makes replays no-ops:
// when the referral is already active no rows match, nothing is credited, and the method
// returns (nil, nil).
func (r *PostgresRepository) ActivateReferralWithCredit(ctx context.Context, referralID uuid.UUID, activatedAt time.Time, credit *domain.Transaction) (*domain.Referral, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var ref domain.Referral
	err = tx.QueryRow(ctx, `
		UPDATE referrals
		SET status = $2, activated_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING id, referrer_id, referred_user_id, status, credit_amount, activated_at, created_at, updated_at
	`,
		referralID,
		domain.ReferralStatusActive,
		activatedAt,
		domain.ReferralStatusPending,
	).Scan(
		&ref.ID,
		&ref.ReferrerID,
		&ref.ReferredUserID,
		&ref.Status,
		&ref.CreditAmount,
		&ref.ActivatedAt,
		&ref.CreatedAt,
		&ref.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Already active (or gone): activation is idempotent, do not credit again.
			return nil, nil
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		credit.ID,
		credit.UserID,
		credit.Type,
		credit.Amount,
		credit.Description,
		credit.ReferenceID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ref, nil
}

// CountActiveReferrals counts the active referral edges where the user is the referrer.
// This query is the single source of truth for every eligibility computation.
func (r *PostgresRepository) CountActiveReferrals(ctx context.Context, referrerID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM referrals WHERE referrer_id = $1 AND status = $2`
	if err := r.db.QueryRow(ctx, query, referrerID, domain.ReferralStatusActive).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountReferralsByStatus aggregates referral counts for the stats endpoint.
func (r *PostgresRepository) CountReferralsByStatus(ctx context.Context, referrerID uuid.UUID) (ReferralCounts, error) {
	var counts ReferralCounts
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM referrals
		WHERE referrer_id = $1
	`
	err := r.db.QueryRow(ctx, query, referrerID, domain.ReferralStatusActive, domain.ReferralStatusPending).
		Scan(&counts.Total, &counts.Active, &counts.Pending)
	if err != nil {
		return ReferralCounts{}, err
	}
	return counts, nil
}

// CreateSubscriptionWithPayment inserts the subscription row and its payment ledger entry
// atomically. A payment that is recorded must always have its ledger debit.
func (r *PostgresRepository) CreateSubscriptionWithPayment(ctx context.Context, sub *domain.Subscription, payment *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO subscriptions (id, user_id, status, amount, payment_provider, payment_phone, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		sub.ID,
		sub.UserID,
		sub.Status,
		sub.Amount,
		sub.PaymentProvider,
		sub.PaymentPhone,
		sub.StartDate,
		sub.EndDate,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		payment.ID,
		payment.UserID,
		payment.Type,
		payment.Amount,
		payment.Description,
		payment.ReferenceID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindCurrentSubscription returns the most recent subscription row for the user, or
// ErrSubscriptionNotFound when the user has never paid.
func (r *PostgresRepository) FindCurrentSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
		SELECT id, user_id, status, amount, payment_provider, payment_phone, start_date, end_date, created_at
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Status,
		&sub.Amount,
		&sub.PaymentProvider,
		&sub.PaymentPhone,
		&sub.StartDate,
		&sub.EndDate,
		&sub.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// CreatePayout inserts a new pending payout request. No ledger entry is written here;
// the debit happens at approval.
func (r *PostgresRepository) CreatePayout(ctx context.Context, payout *domain.Payout) error {
	query := `
		INSERT INTO payouts (id, user_id, status, amount, payment_phone, payment_provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		payout.ID,
		payout.UserID,
		payout.Status,
		payout.Amount,
		payout.PaymentPhone,
		payout.PaymentProvider,
	).Scan(&payout.CreatedAt, &payout.UpdatedAt)
}

// FindPayoutByID retrieves a single payout.
func (r *PostgresRepository) FindPayoutByID(ctx context.Context, payoutID uuid.UUID) (*domain.Payout, error) {
	query := payoutSelect + ` WHERE id = $1`
	return r.scanPayout(r.db.QueryRow(ctx, query, payoutID))
}

// FindPayoutsByUserID retrieves the payout history for a user, newest first.
func (r *PostgresRepository) FindPayoutsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Payout, error) {
	query := payoutSelect + ` WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := []domain.Payout{}
	for rows.Next() {
		var p domain.Payout
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Status,
			&p.Amount,
			&p.PaymentPhone,
			&p.PaymentProvider,
			&p.ApprovedBy,
			&p.ApprovedAt,
			&p.CompletedAt,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// SumReservedPayouts totals pending and approved payouts for the reservation check.
func (r *PostgresRepository) SumReservedPayouts(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payouts
		WHERE user_id = $1 AND status IN ($2, $3)
	`
	err := r.db.QueryRow(ctx, query, userID, domain.PayoutStatusPending, domain.PayoutStatusApproved).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ApprovePayoutWithDebit transitions a pending payout to approved and logs the debit in
// one database transaction. When the guard fails (payout not pending) the current row is
// returned so the service can report the actual state.
func (r *PostgresRepository) ApprovePayoutWithDebit(ctx context.Context, payoutID uuid.UUID, approvedBy uuid.UUID, approvedAt time.Time, debit *domain.Transaction) (*domain.Payout, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE payouts
		SET status = $2, approved_by = $3, approved_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
		RETURNING id, user_id, status, amount, payment_phone, payment_provider, approved_by, approved_at, completed_at, created_at, updated_at
	`
	payout, err := r.scanPayout(tx.QueryRow(ctx, query,
		payoutID,
		domain.PayoutStatusApproved,
		approvedBy,
		approvedAt,
		domain.PayoutStatusPending,
	))
	if err != nil {
		if errors.Is(err, ErrPayoutNotFound) {
			// Guard failed or the id is unknown; report the row as it stands.
			return r.FindPayoutByID(ctx, payoutID)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		debit.ID,
		debit.UserID,
		debit.Type,
		debit.Amount,
		debit.Description,
		debit.ReferenceID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return payout, nil
}

// UpdatePayoutStatus performs a guarded transition with no ledger side effects (reject,
// complete). When the payout exists but is not in fromStatus, the unchanged row is
// returned and the caller decides how to report it.
func (r *PostgresRepository) UpdatePayoutStatus(ctx context.Context, payoutID uuid.UUID, fromStatus, toStatus domain.PayoutStatus, completedAt *time.Time) (*domain.Payout, error) {
	query := `
		UPDATE payouts
		SET status = $2, completed_at = COALESCE($3, completed_at), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING id, user_id, status, amount, payment_phone, payment_provider, approved_by, approved_at, completed_at, created_at, updated_at
	`
	payout, err := r.scanPayout(r.db.QueryRow(ctx, query, payoutID, toStatus, completedAt, fromStatus))
	if err != nil {
		if errors.Is(err, ErrPayoutNotFound) {
			return r.FindPayoutByID(ctx, payoutID)
		}
		return nil, err
	}
	return payout, nil
}

const payoutSelect = `
	SELECT id, user_id, status, amount, payment_phone, payment_provider, approved_by, approved_at, completed_at, created_at, updated_at
	FROM payouts`

func (r *PostgresRepository) scanPayout(row pgx.Row) (*domain.Payout, error) {
	var p domain.Payout
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Status,
		&p.Amount,
		&p.PaymentPhone,
		&p.PaymentProvider,
		&p.ApprovedBy,
		&p.ApprovedAt,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateTransaction appends one ledger entry. Ledger rows are never updated or deleted.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, entry *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, type, amount, description, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Type,
		entry.Amount,
		entry.Description,
		entry.ReferenceID,
	).Scan(&entry.CreatedAt)
}

// FindTransactionsByUserID retrieves a user's ledger history, newest first.
func (r *PostgresRepository) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT id, user_id, type, amount, COALESCE(description, ''), reference_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
