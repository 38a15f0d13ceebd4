package registry

// Trading engine endpoints. The proxy and the quote client both talk to the
// same aggregation service; the path layout mirrors its public API.
const (
	EngineBaseURL      = "https://trading.ai.zircuit.com/api/engine/v1"
	EngineEstimatePath = "/order/estimate"
	EngineStatusPath   = "/order/status"

	// Default on-chain strategy registry deployment (Base).
	StrategyRegistryAddress = "0x8fd308C3F8596b5d4b563dc530DD84eBE69da656"
	StrategyRegistryChainID = int64(8453)
)
