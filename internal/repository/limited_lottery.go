package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/mysql"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
)

type LimitedLotteryRepository struct {
	dbhandler mysql.Handler
}

func NewLimitedLotteryRepository(dbhandler mysql.Handler) *LimitedLotteryRepository {
	return &LimitedLotteryRepository{dbhandler: dbhandler}
}

const limitedLotteryColumns = "id, lottery_name, lottery_symbol, lottery_uri, image, " +
	"price, total_pot_amount, total_tickets, number_of_ticket_sold, status, " +
	"initialize_config_signature, initialize_lottery_signature, create_randomness_signature, " +
	"commit_randomness_signature, reveal_winner_signature, sb_randomness_pub_key, sb_queue_pub_key, " +
	"winner_chosen, winner_public_key, winner_ticket_id, winner_declared_time, " +
	"price_claimed, price_claimed_signature, price_claimed_time, " +
	"authority_price_claimed, authority_price_claimed_signature, authority_price_claimed_time, " +
	"created_at, updated_at"

func scanLimitedLottery(row rowScanner) (*model.LimitedLottery, error) {
	lottery := &model.LimitedLottery{}

	err := row.Scan(
		&lottery.ID, &lottery.LotteryName, &lottery.LotterySymbol, &lottery.LotteryURI, &lottery.Image,
		&lottery.Price, &lottery.TotalPotAmount, &lottery.TotalTickets, &lottery.NumberOfTicketSold, &lottery.Status,
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

func (repo *LimitedLotteryRepository) SaveLottery(lottery model.LimitedLottery) (int64, error) {
	const op = "repository.limited_lottery.SaveLottery"

	const query = "INSERT INTO limited_lotteries(lottery_name, lottery_symbol, lottery_uri, image, " +
		"price, total_pot_amount, total_tickets, number_of_ticket_sold, status, winner_chosen, " +
		"price_claimed, authority_price_claimed, created_at, updated_at) " +
		"VALUES(?, ?, ?, ?, ?, ?, ?, 0, ?, false, false, false, ?, ?)"

	now := time.Now()

	res, err := repo.dbhandler.PrepareAndExecute(query,
		lottery.LotteryName, lottery.LotterySymbol, lottery.LotteryURI, lottery.Image,
		lottery.Price, lottery.TotalPotAmount, lottery.TotalTickets,
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

func (repo *LimitedLotteryRepository) GetLotteryByID(id int64) (*model.LimitedLottery, error) {
	const op = "repository.limited_lottery.GetLotteryByID"

	const query = "SELECT " + limitedLotteryColumns + " FROM limited_lotteries WHERE id = ?"

	row, err := repo.dbhandler.PrepareAndQueryRow(query, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lottery, err := scanLimitedLottery(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return lottery, nil
}

func (repo *LimitedLotteryRepository) FindActiveLotteries() ([]model.LimitedLottery, error) {
	const op = "repository.limited_lottery.FindActiveLotteries"

	const query = "SELECT " + limitedLotteryColumns + " FROM limited_lotteries WHERE status = ? ORDER BY created_at DESC"

	return repo.queryLotteries(op, query, config.StatusActive)
}

func (repo *LimitedLotteryRepository) FindUnclaimedWins() ([]model.LimitedLottery, error) {
	const op = "repository.limited_lottery.FindUnclaimedWins"

	const query = "SELECT " + limitedLotteryColumns + " FROM limited_lotteries " +
		"WHERE status = ? AND winner_chosen = true AND price_claimed = false AND winner_ticket_id IS NOT NULL"

	return repo.queryLotteries(op, query, config.StatusActive)
}

func (repo *LimitedLotteryRepository) FindClaimedWinsByWinner(publicKey string) ([]model.LimitedLottery, error) {
	const op = "repository.limited_lottery.FindClaimedWinsByWinner"

	const query = "SELECT " + limitedLotteryColumns + " FROM limited_lotteries " +
		"WHERE winner_public_key = ? AND price_claimed = true"

	return repo.queryLotteries(op, query, publicKey)
}

func (repo *LimitedLotteryRepository) FindWinners() ([]model.LimitedLottery, error) {
	const op = "repository.limited_lottery.FindWinners"

	const query = "SELECT " + limitedLotteryColumns + " FROM limited_lotteries " +
		"WHERE winner_chosen = true AND winner_public_key IS NOT NULL AND winner_ticket_id IS NOT NULL " +
		"ORDER BY winner_declared_time DESC"

	return repo.queryLotteries(op, query)
}

func (repo *LimitedLotteryRepository) queryLotteries(op string, query string, args ...interface{}) ([]model.LimitedLottery, error) {
	rows, err := repo.dbhandler.PrepareAndQuery(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var lotteries []model.LimitedLottery

	for rows.Next() {
		lottery, err := scanLimitedLottery(rows)
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

func (repo *LimitedLotteryRepository) ExistsLottery(id int64) (bool, error) {
	const op = "repository.limited_lottery.ExistsLottery"

	const query = "SELECT 1 FROM limited_lotteries WHERE id = ?"

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

func (repo *LimitedLotteryRepository) GetRandomnessKeys(id int64) (*model.RandomnessKeys, error) {
	const op = "repository.limited_lottery.GetRandomnessKeys"

	const query = "SELECT sb_randomness_pub_key, sb_queue_pub_key FROM limited_lotteries WHERE id = ?"

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

func (repo *LimitedLotteryRepository) GetSettlementState(id int64) (*model.SettlementState, error) {
	const op = "repository.limited_lottery.GetSettlementState"

	const query = "SELECT id, status, winner_chosen, winner_ticket_id, price_claimed, authority_price_claimed " +
		"FROM limited_lotteries WHERE id = ?"

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

// RecordTicketSale bumps the sold counter inside the purchase transaction.
// The cap guard keeps sales at or below the fixed ticket count; the pot was
// precomputed at creation and never changes.
func (repo *LimitedLotteryRepository) RecordTicketSale(tx *sql.Tx, id int64) error {
	const op = "repository.limited_lottery.RecordTicketSale"

	const query = "UPDATE limited_lotteries SET number_of_ticket_sold = number_of_ticket_sold + 1, updated_at = ? " +
		"WHERE id = ? AND number_of_ticket_sold < total_tickets AND status = ?"

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

func (repo *LimitedLotteryRepository) SetInitializeConfigSignature(id int64, signature string) (bool, error) {
	const op = "repository.limited_lottery.SetInitializeConfigSignature"

	const query = "UPDATE limited_lotteries SET initialize_config_signature = ?, updated_at = ? " +
		"WHERE id = ? AND initialize_config_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, time.Now(), id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) SetInitializeLotterySignature(id int64, signature string) (bool, error) {
	const op = "repository.limited_lottery.SetInitializeLotterySignature"

	const query = "UPDATE limited_lotteries SET initialize_lottery_signature = ?, updated_at = ? " +
		"WHERE id = ? AND initialize_lottery_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, time.Now(), id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) SetRandomness(id int64, signature, sbRandomnessPubKey, sbQueuePubKey string) (bool, error) {
	const op = "repository.limited_lottery.SetRandomness"

	const query = "UPDATE limited_lotteries SET create_randomness_signature = ?, sb_randomness_pub_key = ?, " +
		"sb_queue_pub_key = ?, updated_at = ? " +
		"WHERE id = ? AND create_randomness_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, sbRandomnessPubKey, sbQueuePubKey, time.Now(), id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) SetCommitRandomnessSignature(id int64, signature string) (bool, error) {
	const op = "repository.limited_lottery.SetCommitRandomnessSignature"

	const query = "UPDATE limited_lotteries SET commit_randomness_signature = ?, updated_at = ? " +
		"WHERE id = ? AND commit_randomness_signature IS NULL AND status = ?"

	return repo.guardedUpdate(op, query, signature, time.Now(), id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) SetWinner(id int64, winnerPublicKey, winnerTicketID, revealSignature string) (bool, error) {
	const op = "repository.limited_lottery.SetWinner"

	const query = "UPDATE limited_lotteries SET winner_chosen = true, winner_public_key = ?, winner_ticket_id = ?, " +
		"reveal_winner_signature = ?, winner_declared_time = ?, updated_at = ? " +
		"WHERE id = ? AND winner_chosen = false AND reveal_winner_signature IS NULL AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, winnerPublicKey, winnerTicketID, revealSignature, now, now, id, config.StatusActive)
}

// SetWinnerManually is the operator fallback for a reveal that reached the
// chain but whose report never landed. No reveal signature is recorded.
func (repo *LimitedLotteryRepository) SetWinnerManually(id int64, winnerPublicKey, winnerTicketID string) (bool, error) {
	const op = "repository.limited_lottery.SetWinnerManually"

	const query = "UPDATE limited_lotteries SET winner_chosen = true, winner_public_key = ?, winner_ticket_id = ?, " +
		"winner_declared_time = ?, updated_at = ? " +
		"WHERE id = ? AND winner_chosen = false AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, winnerPublicKey, winnerTicketID, now, now, id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) ClaimWinnings(id int64, claimantPublicKey, claimSignature string) (bool, error) {
	const op = "repository.limited_lottery.ClaimWinnings"

	const query = "UPDATE limited_lotteries SET price_claimed = true, winner_public_key = ?, " +
		"price_claimed_signature = ?, price_claimed_time = ?, updated_at = ? " +
		"WHERE id = ? AND price_claimed = false AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, claimantPublicKey, claimSignature, now, now, id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) ClaimAuthorityWinnings(id int64, claimSignature string) (bool, error) {
	const op = "repository.limited_lottery.ClaimAuthorityWinnings"

	const query = "UPDATE limited_lotteries SET authority_price_claimed = true, " +
		"authority_price_claimed_signature = ?, authority_price_claimed_time = ?, updated_at = ? " +
		"WHERE id = ? AND authority_price_claimed = false AND status = ?"

	now := time.Now()

	return repo.guardedUpdate(op, query, claimSignature, now, now, id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) Complete(id int64) (bool, error) {
	const op = "repository.limited_lottery.Complete"

	const query = "UPDATE limited_lotteries SET status = ?, updated_at = ? " +
		"WHERE id = ? AND status = ? AND winner_chosen = true AND price_claimed = true AND authority_price_claimed = true"

	return repo.guardedUpdate(op, query, config.StatusCompleted, time.Now(), id, config.StatusActive)
}

func (repo *LimitedLotteryRepository) DeleteLottery(id int64) (bool, error) {
	const op = "repository.limited_lottery.DeleteLottery"

	const query = "DELETE FROM limited_lotteries WHERE id = ?"

	return repo.guardedUpdate(op, query, id)
}

func (repo *LimitedLotteryRepository) guardedUpdate(op string, query string, args ...interface{}) (bool, error) {
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
