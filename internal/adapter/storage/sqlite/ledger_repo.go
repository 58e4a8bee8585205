package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository. Amounts are stored as
// decimal text and times as UTC unix nanoseconds.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

const (
	insertWalletSQL = `INSERT INTO wallets (session_id, balance, currency, address, tier, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	insertTransactionSQL = `INSERT INTO transactions (id, session_id, amount, currency, direction, status, concept, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	selectWalletSQL = `SELECT session_id, balance, currency, address, tier, updated_at
		FROM wallets WHERE session_id = ?`
)

// Open inserts the opening wallet and its seed history in one transaction.
func (r *LedgerRepo) Open(ctx context.Context, wallet *domain.Wallet, seed []domain.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger open: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck

	_, err = dbTx.ExecContext(ctx, insertWalletSQL,
		wallet.SessionID.String(), wallet.Balance.String(), wallet.Currency,
		wallet.Address, string(wallet.Tier), wallet.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}

	// oldest first so seq follows time
	for i := len(seed) - 1; i >= 0; i-- {
		if err := insertTransaction(ctx, dbTx, &seed[i]); err != nil {
			return err
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit ledger open: %w", err)
	}
	return nil
}

// GetWallet fetches a session's wallet. Returns nil, nil if absent.
func (r *LedgerRepo) GetWallet(ctx context.Context, sessionID uuid.UUID) (*domain.Wallet, error) {
	w, err := scanWallet(r.db.QueryRowContext(ctx, selectWalletSQL, sessionID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// ListTransactions returns the newest transactions first. A non-positive
// limit returns all of them.
func (r *LedgerRepo) ListTransactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = -1 // LIMIT -1 is unbounded in SQLite
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, amount, currency, direction, status, concept, created_at
		FROM transactions WHERE session_id = ?
		ORDER BY created_at DESC, seq DESC LIMIT ?`,
		sessionID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0)
	for rows.Next() {
		var (
			tx                         domain.Transaction
			sid, amount                string
			direction, status, concept string
			created                    int64
		)
		if err := rows.Scan(&tx.ID, &sid, &amount, &tx.Currency, &direction, &status, &concept, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.SessionID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("parse session id of %s: %w", tx.ID, err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", tx.ID, err)
		}
		tx.Direction = domain.Direction(direction)
		tx.Status = domain.TransactionStatus(status)
		tx.Concept = concept
		tx.Timestamp = time.Unix(0, created).UTC()
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// Credit adds the amount and records the transaction atomically. Returns
// nil, nil if the session has no wallet.
func (r *LedgerRepo) Credit(ctx context.Context, sessionID uuid.UUID, tx *domain.Transaction) (*domain.Wallet, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin credit: %w", err)
	}
	defer dbTx.Rollback() //nolint:errcheck

	wallet, err := scanWallet(dbTx.QueryRowContext(ctx, selectWalletSQL, sessionID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}

	wallet.Credit(tx.Amount, tx.Timestamp)

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, updated_at = ? WHERE session_id = ?`,
		wallet.Balance.String(), wallet.UpdatedAt.UnixNano(), sessionID.String(),
	); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return wallet, nil
}

func insertTransaction(ctx context.Context, dbTx *sql.Tx, tx *domain.Transaction) error {
	_, err := dbTx.ExecContext(ctx, insertTransactionSQL,
		tx.ID, tx.SessionID.String(), tx.Amount.String(), tx.Currency,
		string(tx.Direction), string(tx.Status), tx.Concept, tx.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func scanWallet(row *sql.Row) (*domain.Wallet, error) {
	var (
		w                  domain.Wallet
		sid, balance, tier string
		updated            int64
	)
	if err := row.Scan(&sid, &balance, &w.Currency, &w.Address, &tier, &updated); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(sid)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	w.SessionID = id
	w.Balance = amount
	w.Tier = domain.Tier(tier)
	w.UpdatedAt = time.Unix(0, updated).UTC()
	return &w, nil
}
