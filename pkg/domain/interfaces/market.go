package interfaces

import (
	"context"

	"github.com/secmon-lab/tickerchat/pkg/domain/model"
)

// QuoteSource returns the latest quote of a market symbol
type QuoteSource interface {
	Quote(ctx context.Context, symbol model.Symbol) (*model.Quote, error)
}

// HeadlineSource returns recent finance headlines, newest first
type HeadlineSource interface {
	Headlines(ctx context.Context, limit int) ([]string, error)
}
