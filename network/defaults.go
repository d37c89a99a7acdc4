package network

// Default RPC endpoints. They are public nodes and can be overridden through config.
const (
	DefaultMainnetRPC  = "https://mainnet.infura.io/v3"
	DefaultRSKRPC      = "https://public-node.rsk.co"
	DefaultLacchainRPC = "http://35.184.61.29:4545"
	DefaultBFARPC      = "http://public.47525974938.bfa.ar:8545"
)

// Defaults returns the networks supported out of the box: the untagged
// default (Ethereum mainnet), rsk, lacchain and bfa.
func Defaults() []Network {
	return []Network{
		{Tag: "", Name: "mainnet", Method: "ethr", Kind: KindEthr, RPCURL: DefaultMainnetRPC, Registry: ERC1056Registry, ChainID: 1},
		{Tag: "rsk", Name: "rsk", Method: "ethr", Kind: KindEthr, RPCURL: DefaultRSKRPC, Registry: ERC1056Registry, ChainID: 30},
		{Tag: "lacchain", Name: "lacchain", Method: "ethr", Kind: KindEthr, RPCURL: DefaultLacchainRPC, Registry: ERC1056Registry, ChainID: 648529},
		{Tag: "bfa", Name: "bfa", Method: "ethr", Kind: KindEthr, RPCURL: DefaultBFARPC, Registry: ERC1056Registry, ChainID: 47525974938},
	}
}

// DefaultTable builds the table from Defaults.
func DefaultTable() *Table {
	t, err := NewTable(Defaults()...)
	if err != nil {
		panic(err)
	}
	return t
}
