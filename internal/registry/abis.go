package registry

// ABI fragments shared by the balance prober, approval issuer and the
// strategy registry reader.
const (
	ERC20MinimalABI = `[
		{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
	]`

	StrategyRegistryABI = `[
		{"name":"totalStrategies","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"getStrategy","type":"function","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"creator","type":"address"},{"name":"title","type":"string"},{"name":"uri","type":"string"},{"name":"token","type":"address"},{"name":"risk","type":"uint8"},{"name":"entryMinUsd","type":"uint128"},{"name":"entryMaxUsd","type":"uint128"},{"name":"stopLossBps","type":"uint16"},{"name":"createdAt","type":"uint64"},{"name":"active","type":"bool"}]}]}
	]`
)
