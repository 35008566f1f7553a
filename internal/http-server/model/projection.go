package model

import "github.com/Shobhit2205/winisol-server/internal/config"

// RandomnessKeys is the Switchboard key pair recorded by create-randomness.
type RandomnessKeys struct {
	SbRandomnessPubKey *string `json:"sbRandomnessPubKey"`
	SbQueuePubKey      *string `json:"sbQueuePubKey"`
}

// SettlementState is the narrow projection the claim handlers read before
// touching the settlement flags.
type SettlementState struct {
	ID                    int64
	Status                config.LotteryStatus
	WinnerChosen          bool
	WinnerTicketID        *string
	PriceClaimed          bool
	AuthorityPriceClaimed bool
}
