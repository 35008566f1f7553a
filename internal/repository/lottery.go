package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/mysql"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
)

type LotteryRepository struct {
	dbhandler mysql.Handler
}

func NewLotteryRepository(dbhandler mysql.Handler) *LotteryRepository {
	return &LotteryRepository{dbhandler: dbhandler}
}

const lotteryColumns = "id, lottery_name, lottery_symbol, lottery_uri, image, start_time, end_time, " +
	"price, pot_amount, total_tickets, status, " +
	"initialize_config_signature, initialize_lottery_signature, create_randomness_signature, " +
	"commit_randomness_signature, reveal_winner_signature, sb_randomness_pub_key, sb_queue_pub_key, " +
	"winner_chosen, winner_public_key, winner_ticket_id, winner_declared_time, " +
	"price_claimed, price_claimed_signature, price_claimed_time, " +
	"authority_price_claimed, authority_price_claimed_signature, authority_price_claimed_time, " +
	"created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLottery(row rowScanner) (*model.Lottery, error) {
	lottery := &model.Lottery{}

	err := row.Scan(
		&lottery.ID, &lottery.LotteryName, &lottery.LotterySymbol, &lottery.LotteryURI, &lottery.Image,
		&lottery.StartTime, &lottery.EndTime,
		&lottery.Price, &lottery.PotAmount, &lottery.TotalTickets, &lottery.Status,
		&lottery.InitializeConfigSignature, &lottery.InitializeLotterySignature, &lottery.CreateRandomnessSignature,
		&lottery.CommitRandomnessSignature, &lottery.RevealWinnerSignature,
		&lottery.SbRandomnessPubKey, &lottery.SbQueuePubKey,
		&lottery.WinnerChosen, &lottery.WinnerPublicKey, &lottery.WinnerTicketID, &lottery.WinnerDeclaredTime,
		&lottery.PriceClaimed, &lottery.PriceClaimedSignature, &lottery.PriceClaimedTime,
		&lottery.AuthorityPriceClaimed, &lottery.AuthorityPriceClaimedSignature, &lottery.AuthorityPriceClaimedTime,
		&lottery.CreatedAt, &lottery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return lottery, nil
}

func (repo *LotteryRepository) SaveLottery(lottery model.Lottery) (int64, error) {
	const op = "repository.lottery.SaveLottery"

	const query = "INSERT INTO lotteries(lottery_name, lottery_symbol, lottery_uri, image, " +
		"start_time, end_time, price, pot_amount, total_tickets, status, winner_chosen, " +
		"price_claimed, authority_price_claimed, created_at, updated_at) " +
		"VALUES(?, ?, ?, ?, ?, ?, ?, ?, 0, ?, false, false, false, ?, ?)"

	now := time.Now()

	res, err := repo.dbhandler.PrepareAndExecute(query,
		lottery.LotteryName, lottery.LotterySymbol, lottery.LotteryURI, lottery.Image,
		lottery.StartTime, lottery.EndTime, lottery.Price, lottery.PotAmount,
		config.StatusActive, now, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (repo *LotteryRepository) GetLotteryByID(id int64) (*model.Lottery, error) {
	const op = "repository.lottery.GetLotteryByID"

	const query = "SELECT " + lotteryColumns + " FROM lotteries WHERE id = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lottery, err := scanLottery(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lottery, nil
}

func (repo *LotteryRepository) FindActiveLotteries() ([]model.Lottery, error) {
	const op = "repository.lottery.FindActiveLotteries"

	const query = "SELECT " + lotteryColumns + " FROM lotteries WHERE status = ? ORDER BY created_at DESC"

	return repo.queryLotteries(op, query, config.StatusActive)
}

func (repo *LotteryRepository) FindUnclaimedWins() ([]model.Lottery, error) {
	const op = "repository.lottery.FindUnclaimedWins"

	const query = "SELECT " + lotteryColumns + " FROM lotteries " +
		"WHERE status = ? AND winner_chosen = true AND price_claimed = false AND winner_ticket_id IS NOT NULL"

	return repo.queryLotteries(op, query, config.StatusActive)
}

func (repo *LotteryRepository) FindClaimedWinsByWinner(publicKey string) ([]model.Lottery, error) {
	const op = "repository.lottery.FindClaimedWinsByWinner"

	const query = "SELECT " + lotteryColumns + " FROM lotteries " +
		"WHERE winner_public_key = ? AND price_claimed = true"

	return repo.queryLotteries(op, query, publicKey)
}

func (repo *LotteryRepository) FindWinners() ([]model.Lottery, error) {
	const op = "repository.lottery.FindWinners"

	const query = "SELECT " + lotteryColumns + " FROM lotteries " +
		"WHERE winner_chosen = true AND winner_public_key IS NOT NULL AND winner_ticket_id IS NOT NULL " +
		"ORDER BY winner_declared_time DESC"

	return repo.queryLotteries(op, query)
}

func (repo *LotteryRepository) queryLotteries(op string, query string, args ...interface{}) ([]model.Lottery, error) {
	rows, err := repo.dbhandler.PrepareAndQuery(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var lotteries []model.Lottery

	for rows.Next() {
		lottery, err := scanLottery(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		lotteries = append(lotteries, *lottery)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lotteries, nil
}

func (repo *LotteryRepository) ExistsLottery(id int64) (bool, error) {
	const op = "repository.lottery.ExistsLottery"

	const query = "SELECT 1 FROM lotteries WHERE id = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	var one int

	if err = row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (repo *LotteryRepository) GetRandomnessKeys(id int64) (*model.RandomnessKeys, error) {
	const op = "repository.lottery.GetRandomnessKeys"

	const query = "SELECT sb_randomness_pub_key, sb_queue_pub_key FROM lotteries WHERE id = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	keys := &model.RandomnessKeys{}

	if err = row.Scan(&keys.SbRandomnessPubKey, &keys.SbQueuePubKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return keys, nil
}

func (repo *LotteryRepository) GetSettlementState(id int64) (*model.SettlementState, error) {
	const op = "repository.lottery.GetSettlementState"

	const query = "SELECT id, status, winner_chosen, winner_ticket_id, price_claimed, authority_price_claimed " +
		"FROM lotteries WHERE id = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state := &model.SettlementState{}

	err = row.Scan(&state.ID, &state.Status, &state.WinnerChosen, &state.WinnerTicketID,
		&state.PriceClaimed, &state.AuthorityPriceClaimed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return state, nil
}

// RecordTicketSale bumps the ticket counter and grows the pot by the unit
// price in one statement, so concurrent purchases never read a stale pot.
// Runs inside the purchase transaction.
func (repo *LotteryRepository) RecordTicketSale(tx *sql.Tx, id int64) error {
	const op = "repository.lottery.RecordTicketSale"

	const query = "UPDATE lotteries SET total_tickets = total_tickets + 1, " +
		"pot_amount = pot_amount + price, updated_at = ? WHERE id = ? AND status = ?"

	res, err := tx.Exec(query, time.Now(), id, config.StatusActive)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}

	return nil
}

// Write-once signature fields. Each update is guarded on the column still
// being NULL; the boolean result distinguishes "written now" from "already
// set".

func (repo *LotteryRepository) SetInitializeConfigSignature(id int64, signature string) (bool, error) {
	const op = "repository.lottery.SetInitializeConfigSignature"

	const query = "UPDATE lotteries SET initialize_config_signature = ?, updated_at = ? " +
		"WHERE id = ? AND initialize_config_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, time.Now(), id, config.StatusActive)
}

func (repo *LotteryRepository) SetInitializeLotterySignature(id int64, signature string) (bool, error) {
	const op = "repository.lottery.SetInitializeLotterySignature"

	const query = "UPDATE lotteries SET initialize_lottery_signature = ?, updated_at = ? " +
		"WHERE id = ? AND initialize_lottery_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, time.Now(), id, config.StatusActive)
}

func (repo *LotteryRepository) SetRandomness(id int64, signature, sbRandomnessPubKey, sbQueuePubKey string) (bool, error) {
	const op = "repository.lottery.SetRandomness"

	const query = "UPDATE lotteries SET create_randomness_signature = ?, sb_randomness_pub_key = ?, " +
		"sb_queue_pub_key = ?, updated_at = ? " +
		"WHERE id = ? AND create_randomness_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, sbRandomnessPubKey, sbQueuePubKey, time.Now(), id, config.StatusActive)
}

func (repo *LotteryRepository) SetCommitRandomnessSignature(id int64, signature string) (bool, error) {
	const op = "repository.lottery.SetCommitRandomnessSignature"

	const query = "UPDATE lotteries SET commit_randomness_signature = ?, updated_at = ? " +
		"WHERE id = ? AND commit_randomness_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, time.Now(), id, config.StatusActive)
}

// SetWinner records the reveal outcome. Guarded on winner_chosen still
// false; a second reveal reports a conflict and leaves state untouched.
func (repo *LotteryRepository) SetWinner(id int64, winnerPublicKey, winnerTicketID, revealSignature string) (bool, error) {
	const op = "repository.lottery.SetWinner"

	const query = "UPDATE lotteries SET winner_chosen = true, winner_public_key = ?, winner_ticket_id = ?, " +
		"reveal_winner_signature = ?, winner_declared_time = ?, updated_at = ? " +
		"WHERE id = ? AND winner_chosen = false AND reveal_winner_signature IS NULL AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, winnerPublicKey, winnerTicketID, revealSignature, now, now, id, config.StatusActive)
}

// SetWinnerManually is the operator fallback for a reveal that reached the
// chain but whose report never landed: winner fields are set from a known
// ticket without touching the reveal signature.
func (repo *LotteryRepository) SetWinnerManually(id int64, winnerPublicKey, winnerTicketID string) (bool, error) {
	const op = "repository.lottery.SetWinnerManually"

	const query = "UPDATE lotteries SET winner_chosen = true, winner_public_key = ?, winner_ticket_id = ?, " +
		"winner_declared_time = ?, updated_at = ? " +
		"WHERE id = ? AND winner_chosen = false AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, winnerPublicKey, winnerTicketID, now, now, id, config.StatusActive)
}

// ClaimWinnings settles the winner side. The claimant becomes the recorded
// winner: holding the winning ticket asset, not the original purchase,
// decides the payout.
func (repo *LotteryRepository) ClaimWinnings(id int64, claimantPublicKey, claimSignature string) (bool, error) {
	const op = "repository.lottery.ClaimWinnings"

	const query = "UPDATE lotteries SET price_claimed = true, winner_public_key = ?, " +
		"price_claimed_signature = ?, price_claimed_time = ?, updated_at = ? " +
		"WHERE id = ? AND price_claimed = false AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, claimantPublicKey, claimSignature, now, now, id, config.StatusActive)
}

func (repo *LotteryRepository) ClaimAuthorityWinnings(id int64, claimSignature string) (bool, error) {
	const op = "repository.lottery.ClaimAuthorityWinnings"

	const query = "UPDATE lotteries SET authority_price_claimed = true, " +
		"authority_price_claimed_signature = ?, authority_price_claimed_time = ?, updated_at = ? " +
		"WHERE id = ? AND authority_price_claimed = false AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, claimSignature, now, now, id, config.StatusActive)
}

// Complete flips ACTIVE to COMPLETED, only once and only when the winner is
// chosen and both sides have settled.
func (repo *LotteryRepository) Complete(id int64) (bool, error) {
	const op = "repository.lottery.Complete"

	const query = "UPDATE lotteries SET status = ?, updated_at = ? " +
		"WHERE id = ? AND status = ? AND winner_chosen = true AND price_claimed = true AND authority_price_claimed = true"

	return repo.guardedUpdate(op, query, config.StatusCompleted, time.Now(), id, config.StatusActive)
}

func (repo *LotteryRepository) DeleteLottery(id int64) (bool, error) {
	const op = "repository.lottery.DeleteLottery"

	const query = "DELETE FROM lotteries WHERE id = ?"

	return repo.guardedUpdate(op, query, id)
}

func (repo *LotteryRepository) guardedUpdate(op string, query string, args ...interface{}) (bool, error) {
	res, err := repo.dbhandler.PrepareAndExecute(query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return affected > 0, nil
}
