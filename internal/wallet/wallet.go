package wallet

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/tradetok/copytrade/internal/errors"
)

// TxRequest is a decoded, ready-to-sign transaction. The calldata and value
// are carried through from the route payload without reinterpretation.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Wallet is the signing surface the session drives. The active chain is the
// wallet's, not the session's: a switch is requested and then observed, never
// assumed, because wallets may ignore or silently drop switch requests.
type Wallet interface {
	Address() common.Address
	ActiveChainID(ctx context.Context) (int64, error)
	RequestSwitch(ctx context.Context, chainID int64) error
	SendTransaction(ctx context.Context, chainID int64, req TxRequest) (common.Hash, error)
}

// DecodePayload converts the route payload's string fields into a signable
// request. Value accepts 0x-prefixed hex or plain decimal; empty means zero.
func DecodePayload(to, data, value string) (TxRequest, error) {
	if !common.IsHexAddress(strings.TrimSpace(to)) {
		return TxRequest{}, clierr.New(clierr.CodeExecution, "payload target is not a valid address")
	}
	calldata, err := decodeHex(data)
	if err != nil {
		return TxRequest{}, clierr.Wrap(clierr.CodeExecution, "decode payload calldata", err)
	}
	amount, err := parseValue(value)
	if err != nil {
		return TxRequest{}, clierr.Wrap(clierr.CodeExecution, "parse payload value", err)
	}
	return TxRequest{
		To:    common.HexToAddress(strings.TrimSpace(to)),
		Data:  calldata,
		Value: amount,
	}, nil
}

func decodeHex(raw string) ([]byte, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if clean == "" {
		return nil, nil
	}
	return hex.DecodeString(clean)
}

func parseValue(raw string) (*big.Int, error) {
	clean := strings.TrimSpace(raw)
	if clean == "" || clean == "0x" {
		return big.NewInt(0), nil
	}
	base := 10
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		clean = clean[2:]
		base = 16
	}
	amount, ok := new(big.Int).SetString(clean, base)
	if !ok {
		return nil, clierr.New(clierr.CodeExecution, "value is not a valid integer")
	}
	if amount.Sign() < 0 {
		return nil, clierr.New(clierr.CodeExecution, "value must not be negative")
	}
	return amount, nil
}
