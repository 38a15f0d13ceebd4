package registry

// FundingToken is a stablecoin deployment that can fund a trade.
type FundingToken struct {
	ChainID  int64
	Symbol   string
	Address  string
	Decimals int
}

// DefaultFundingCandidates is the priority-ordered funding source list.
// Order encodes preference: cheaper, lower-latency chains first. The
// resolver probes this list in order and stops at the first sufficient
// balance.
var DefaultFundingCandidates = []FundingToken{
	{ChainID: 8453, Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
	{ChainID: 42161, Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
	{ChainID: 10, Symbol: "USDC", Address: "0x7F5c764cBc14f9669B88837ca1490cCa17c31607", Decimals: 6},
	{ChainID: 137, Symbol: "USDC", Address: "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", Decimals: 6},
	{ChainID: 1, Symbol: "USDC", Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6},
}
