package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Shobhit2205/winisol-server/internal/http-server/handlers/mysql"
	"github.com/Shobhit2205/winisol-server/internal/http-server/model"
)

// TicketRepository serves one of the two ticket tables; the regular and
// limited variants carry identical columns.
type TicketRepository struct {
	dbhandler mysql.Handler
	table     string
}

func NewTicketRepository(dbhandler mysql.Handler) *TicketRepository {
	return &TicketRepository{dbhandler: dbhandler, table: "tickets"}
}

func NewLimitedTicketRepository(dbhandler mysql.Handler) *TicketRepository {
	return &TicketRepository{dbhandler: dbhandler, table: "limited_lottery_tickets"}
}

// SaveTicket inserts inside the purchase transaction so the row and the
// lottery counters commit together. The unique key on ticket_signature
// rejects a replayed purchase report.
func (repo *TicketRepository) SaveTicket(tx *sql.Tx, ticket model.Ticket) (int64, error) {
	const op = "repository.ticket.SaveTicket"

	query := "INSERT INTO " + repo.table +
		"(lottery_id, buyer_public_key, ticket_signature, ticket_id, created_at) VALUES(?, ?, ?, ?, ?)"

	res, err := tx.Exec(query, ticket.LotteryID, ticket.BuyerPublicKey, ticket.TicketSignature, ticket.TicketID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (repo *TicketRepository) FindTicketBySignature(signature string) (*model.Ticket, error) {
	const op = "repository.ticket.FindTicketBySignature"

	query := "SELECT id, lottery_id, buyer_public_key, ticket_signature, ticket_id, created_at FROM " +
		repo.table + " WHERE ticket_signature = ?"

	return repo.findOne(op, query, signature)
}

func (repo *TicketRepository) FindTicketByTicketID(ticketID string) (*model.Ticket, error) {
	const op = "repository.ticket.FindTicketByTicketID"

	query := "SELECT id, lottery_id, buyer_public_key, ticket_signature, ticket_id, created_at FROM " +
		repo.table + " WHERE ticket_id = ?"

	return repo.findOne(op, query, ticketID)
}

func (repo *TicketRepository) FindTicketIDsByLottery(lotteryID int64) ([]string, error) {
	const op = "repository.ticket.FindTicketIDsByLottery"

	query := "SELECT ticket_id FROM " + repo.table + " WHERE lottery_id = ?"

	rows, err := repo.dbhandler.PrepareAndQuery(query, lotteryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ticketIDs []string

	for rows.Next() {
		var ticketID string

		if err = rows.Scan(&ticketID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		ticketIDs = append(ticketIDs, ticketID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ticketIDs, nil
}

func (repo *TicketRepository) findOne(op string, query string, arg interface{}) (*model.Ticket, error) {
	row, err := repo.dbhandler.PrepareAndQueryRow(query, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ticket := &model.Ticket{}

	err = row.Scan(&ticket.ID, &ticket.LotteryID, &ticket.BuyerPublicKey, &ticket.TicketSignature, &ticket.TicketID, &ticket.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ticket, nil
}
