package model

import (
	"time"

	"github.com/Shobhit2205/winisol-server/internal/config"
	"github.com/shopspring/decimal"
)

// Lottery is the time-boxed variant: tickets sell until EndTime and the pot
// grows by the unit price on every sale.
type Lottery struct {
	ID            int64                `json:"id"`
	LotteryName   string               `json:"lotteryName"`
	LotterySymbol string               `json:"lotterySymbol"`
	LotteryURI    string               `json:"lotteryURI"`
	Image         string               `json:"image"`
	StartTime     int64                `json:"startTime"`
	EndTime       int64                `json:"endTime"`
	Price         decimal.Decimal      `json:"price"`
	PotAmount     decimal.Decimal      `json:"potAmount"`
	TotalTickets  int64                `json:"totalTickets"`
	Status        config.LotteryStatus `json:"status"`

	OnChainState
	Outcome
	Settlement

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LimitedLottery has a fixed ticket cap; its total pot is computed at
// creation as price times capacity and never changes.
type LimitedLottery struct {
	ID                 int64                `json:"id"`
	LotteryName        string               `json:"lotteryName"`
	LotterySymbol      string               `json:"lotterySymbol"`
	LotteryURI         string               `json:"lotteryURI"`
	Image              string               `json:"image"`
	Price              decimal.Decimal      `json:"price"`
	TotalPotAmount     decimal.Decimal      `json:"totalPotAmount"`
	TotalTickets       int64                `json:"totalTickets"`
	NumberOfTicketSold int64                `json:"numberOfTicketSold"`
	Status             config.LotteryStatus `json:"status"`

	OnChainState
	Outcome
	Settlement

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OnChainState records each irreversible on-chain step. Every field is
// write-once: the repositories refuse to overwrite a non-null value.
type OnChainState struct {
	InitializeConfigSignature  *string `json:"initializeConfigSignature"`
	InitializeLotterySignature *string `json:"initializeLotterySignature"`
	CreateRandomnessSignature  *string `json:"createRandomnessSignature"`
	RevealWinnerSignature      *string `json:"revealWinnerSignature"`
	CommitRandomnessSignature  *string `json:"commitRandomnessSignature"`
	SbRandomnessPubKey         *string `json:"sbRandomnessPubKey"`
	SbQueuePubKey              *string `json:"sbQueuePubKey"`
}

type Outcome struct {
	WinnerChosen       bool       `json:"winnerChosen"`
	WinnerPublicKey    *string    `json:"winnerPublicKey"`
	WinnerTicketID     *string    `json:"winnerTicketId"`
	WinnerDeclaredTime *time.Time `json:"winnerDeclaredTime"`
}

type Settlement struct {
	PriceClaimed                   bool       `json:"priceClaimed"`
	PriceClaimedSignature          *string    `json:"priceClaimedSignature"`
	PriceClaimedTime               *time.Time `json:"priceClaimedTime"`
	AuthorityPriceClaimed          bool       `json:"authorityPriceClaimed"`
	AuthorityPriceClaimedSignature *string    `json:"authorityPriceClaimedSignature"`
	AuthorityPriceClaimedTime      *time.Time `json:"authorityPriceClaimedTime"`
}

// WinningAmount derives the regular-lottery payout from the current pot.
func (l *Lottery) WinningAmount() decimal.Decimal {
	return l.PotAmount.Mul(config.WinnerShare)
}

// WinningAmount for a limited lottery is the full precomputed pot,
// regardless of how many tickets actually sold.
func (l *LimitedLottery) WinningAmount() decimal.Decimal {
	return l.TotalPotAmount
}
