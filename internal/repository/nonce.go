package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/mysql"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
)

type NonceRepository struct {
	dbhandler mysql.Handler
}

func NewNonceRepository(dbhandler mysql.Handler) *NonceRepository {
	return &NonceRepository{dbhandler: dbhandler}
}

// UpsertNonce overwrites any outstanding challenge for the key; only the
// latest nonce is ever valid.
func (repo *NonceRepository) UpsertNonce(publicKey, nonce string, expiresAt time.Time) error {
	const op = "repository.nonce.UpsertNonce"

	const query = "INSERT INTO nonces(public_key, nonce, expires_at) VALUES(?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE nonce = VALUES(nonce), expires_at = VALUES(expires_at)"

	if _, err := repo.dbhandler.PrepareAndExecute(query, publicKey, nonce, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (repo *NonceRepository) FindNonceByPublicKey(publicKey string) (*model.Nonce, error) {
	const op = "repository.nonce.FindNonceByPublicKey"

	const query = "SELECT public_key, nonce, expires_at FROM nonces WHERE public_key = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, publicKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	nonce := &model.Nonce{}

	err = row.Scan(&nonce.PublicKey, &nonce.Nonce, &nonce.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return nonce, nil
}

func (repo *NonceRepository) DeleteNonce(publicKey string) error {
	const op = "repository.nonce.DeleteNonce"

	const query = "DELETE FROM nonces WHERE public_key = ?"

	if _, err := repo.dbhandler.PrepareAndExecute(query, publicKey); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
