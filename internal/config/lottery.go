package config

import "github.com/shopspring/decimal"

type LotteryStatus string

const (
	StatusActive    LotteryStatus = "ACTIVE"
	StatusCompleted LotteryStatus = "COMPLETED"
)

type LotteryType string

const (
	Regular LotteryType = "regular"
	Limited LotteryType = "limited"
)

// Instruction names logged by the lottery program.
const (
	InstructionBuyTickets           = "BuyTickets"
	InstructionBuyLimitedTickets    = "BuyLimitedLotteryTickets"
	InstructionClaimWinnings        = "ClaimWinnings"
	InstructionClaimLimitedWinnings = "ClaimLimitedLotteryWinnings"
)

// WinnerShare is the fraction of the accumulated pot paid to a regular
// lottery winner; the remainder stays with the authority. Limited lotteries
// pay their full precomputed pot.
var WinnerShare = decimal.NewFromFloat(0.9)
