package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository. Amounts are NUMERIC columns
// read and written as text so no precision passes through float64.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const (
	insertWalletSQL = `INSERT INTO wallets (session_id, balance, currency, address, tier, updated_at)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)`
	insertTransactionSQL = `INSERT INTO transactions (id, session_id, amount, currency, direction, status, concept, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8)`
	selectWalletSQL = `SELECT session_id, balance::text, currency, address, tier, updated_at
		FROM wallets WHERE session_id = $1`
)

// Open inserts the opening wallet and its seed history in one transaction.
// Seed is newest first, so it is inserted in reverse to keep seq ordering.
func (r *LedgerRepo) Open(ctx context.Context, wallet *domain.Wallet, seed []domain.Transaction) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger open: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	_, err = dbTx.Exec(ctx, insertWalletSQL,
		wallet.SessionID, wallet.Balance.String(), wallet.Currency,
		wallet.Address, string(wallet.Tier), wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}

	for i := len(seed) - 1; i >= 0; i-- {
		if err := insertTransaction(ctx, dbTx, &seed[i]); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger open: %w", err)
	}
	return nil
}

// GetWallet fetches a session's wallet. Returns nil, nil if absent.
func (r *LedgerRepo) GetWallet(ctx context.Context, sessionID uuid.UUID) (*domain.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx, selectWalletSQL, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// ListTransactions returns the newest transactions first.
func (r *LedgerRepo) ListTransactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Transaction, error) {
	var lim any // NULL means LIMIT ALL
	if limit > 0 {
		lim = limit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, amount::text, currency, direction, status, concept, created_at
		FROM transactions WHERE session_id = $1
		ORDER BY created_at DESC, seq DESC LIMIT $2`,
		sessionID, lim,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		var (
			tx                         domain.Transaction
			amount                     string
			direction, status, concept string
		)
		if err := rows.Scan(&tx.ID, &tx.SessionID, &amount, &tx.Currency, &direction, &status, &concept, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", tx.ID, err)
		}
		tx.Direction = domain.Direction(direction)
		tx.Status = domain.TransactionStatus(status)
		tx.Concept = concept
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// Credit locks the wallet row, adds the amount and records the transaction.
// Returns nil, nil if the session has no wallet.
func (r *LedgerRepo) Credit(ctx context.Context, sessionID uuid.UUID, tx *domain.Transaction) (*domain.Wallet, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin credit: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := scanWallet(dbTx.QueryRow(ctx, selectWalletSQL+" FOR UPDATE", sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock wallet: %w", err)
	}

	wallet.Credit(tx.Amount, tx.Timestamp)

	tag, err := dbTx.Exec(ctx,
		`UPDATE wallets SET balance = $1::numeric, updated_at = $2 WHERE session_id = $3`,
		wallet.Balance.String(), wallet.UpdatedAt, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("wallet not found: %s", sessionID)
	}

	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return wallet, nil
}

func insertTransaction(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	_, err := dbTx.Exec(ctx, insertTransactionSQL,
		tx.ID, tx.SessionID, tx.Amount.String(), tx.Currency,
		string(tx.Direction), string(tx.Status), tx.Concept, tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var (
		w       domain.Wallet
		balance string
		tier    string
		updated time.Time
	)
	if err := row.Scan(&w.SessionID, &balance, &w.Currency, &w.Address, &tier, &updated); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	w.Balance = amount
	w.Tier = domain.Tier(tier)
	w.UpdatedAt = updated
	return &w, nil
}
