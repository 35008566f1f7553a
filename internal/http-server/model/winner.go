package model

import (
	"time"

	"github.com/Shobhit2205/winisol-server/internal/config"
)

// WinnerSummary is the shape both lottery variants flatten into for the
// public winner listings.
type WinnerSummary struct {
	ID                    int64              `json:"id"`
	LotteryName           string             `json:"lotteryName"`
	LotterySymbol         string             `json:"lotterySymbol"`
	LotteryURI            string             `json:"lotteryURI"`
	Image                 string             `json:"image,omitempty"`
	LotteryType           config.LotteryType `json:"lotteryType"`
	Price                 string             `json:"price"`
	WinningAmount         string             `json:"winningAmount"`
	WinnerPublicKey       *string            `json:"winnerPublicKey,omitempty"`
	WinnerTicketID        string             `json:"winnerTicketId"`
	WinnerDeclaredTime    *time.Time         `json:"winnerDeclaredTime,omitempty"`
	RevealWinnerSignature *string            `json:"revealWinnerSignature,omitempty"`
	PriceClaimed          bool               `json:"priceClaimed"`
	PriceClaimedSignature *string            `json:"priceClaimedSignature,omitempty"`
	PriceClaimedTime      *time.Time         `json:"priceClaimedTime,omitempty"`
}
