package model

import "time"

// Ticket belongs to exactly one lottery. TicketSignature is the on-chain
// purchase transaction and is globally unique, which is what makes replayed
// purchase reports fail. TicketID is the canonical
// "<LotteryName> #<lotteryId>-<sequence>" string joining purchase and
// reveal events.
type Ticket struct {
	ID              int64     `json:"id"`
	LotteryID       int64     `json:"lotteryId"`
	BuyerPublicKey  string    `json:"buyerPublicKey"`
	TicketSignature string    `json:"ticketSignature"`
	TicketID        string    `json:"ticketId"`
	CreatedAt       time.Time `json:"createdAt"`
}
