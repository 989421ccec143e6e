package models

// PrizeType is the stored discriminator of a Prize
type PrizeType string

const (
	PrizeText PrizeType = "text"
	PrizeFile PrizeType = "file"
	PrizePool PrizeType = "code_pool"
)

// Prize is the payload bound to a redeem code. It is one of TextPrize,
// FilePrize or PoolPrize.
type Prize interface {
	Type() PrizeType
	isPrize()
}

// TextPrize delivers a literal text message
type TextPrize struct {
	Text string
}

// FilePrize delivers a stored Telegram file
type FilePrize struct {
	Kind   MediaKind
	Handle string
}

// PoolPrize hands out one item per redemption, in insertion order
type PoolPrize struct {
	Items []string
}

func (TextPrize) Type() PrizeType { return PrizeText }
func (FilePrize) Type() PrizeType { return PrizeFile }
func (PoolPrize) Type() PrizeType { return PrizePool }

func (TextPrize) isPrize() {}
func (FilePrize) isPrize() {}
func (PoolPrize) isPrize() {}
