package domain

import (
	"fmt"
	"strings"
)

// AssetType classifies the traded instrument
type AssetType string

const (
	AssetTypeStock      AssetType = "STOCK"
	AssetTypeBond       AssetType = "BOND"
	AssetTypeETF        AssetType = "ETF"
	AssetTypeMutualFund AssetType = "MUTUAL_FUND"
	AssetTypeCrypto     AssetType = "CRYPTO"
	AssetTypeCommodity  AssetType = "COMMODITY"
	AssetTypeForex      AssetType = "FOREX"
	AssetTypeOption     AssetType = "OPTION"
	AssetTypeFuture     AssetType = "FUTURE"
)

// IsValid reports whether the asset type is one of the known classifications
func (a AssetType) IsValid() bool {
	switch a {
	case AssetTypeStock, AssetTypeBond, AssetTypeETF, AssetTypeMutualFund,
		AssetTypeCrypto, AssetTypeCommodity, AssetTypeForex, AssetTypeOption,
		AssetTypeFuture:
		return true
	}
	return false
}

const maxTickerLength = 50

// Symbol identifies a traded instrument.
// Ticker and exchange are normalized to upper case on construction.
// Equality is structural; two Symbol values compare equal with == when
// ticker, exchange and asset type all match.
type Symbol struct {
	Ticker    string
	Exchange  string
	AssetType AssetType
}

// NewSymbol creates a normalized Symbol
func NewSymbol(ticker, exchange string, assetType AssetType) (Symbol, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	exchange = strings.ToUpper(strings.TrimSpace(exchange))

	if ticker == "" {
		return Symbol{}, fmt.Errorf("%w: ticker cannot be empty", ErrValidation)
	}
	if len(ticker) > maxTickerLength {
		return Symbol{}, fmt.Errorf("%w: ticker cannot exceed %d characters", ErrValidation, maxTickerLength)
	}
	if !assetType.IsValid() {
		return Symbol{}, fmt.Errorf("%w: unknown asset type %q", ErrValidation, assetType)
	}

	return Symbol{Ticker: ticker, Exchange: exchange, AssetType: assetType}, nil
}

func (s Symbol) String() string {
	if s.Exchange == "" {
		return s.Ticker
	}
	return s.Ticker + ":" + s.Exchange
}
