package group

// probeBytecode is the compiled probe contract: a single uint256 slot with
// store(uint256) and retrieve() returns (uint256). Compiled with solc 0.8.x,
// optimizer off.
const probeBytecode = "0x608060405234801561001057600080fd5b50610150806100206000396000f3fe" +
	"608060405234801561001057600080fd5b50600436106100365760003560e01c80632e" +
	"64cec11461003b5780636057361d14610059575b600080fd5b610043610075565b6040" +
	"516100509190610091565b60405180910390f35b610073600480360381019061006e91" +
	"906100dd565b61007e565b005b60008054905090565b8060008190555050565b600081" +
	"9050919050565b61008b81610078565b82525050565b60006020820190506100a66000" +
	"830184610082565b92915050565b600080fd5b6100ba81610078565b81146100c55760" +
	"0080fd5b50565b6000813590506100d7816100b1565b92915050565b60006020828403" +
	"12156100f3576100f26100ac565b5b6000610101848285016100c8565b915050929150" +
	"50565b56fea2646970667358221220aa0bd1baf2b5a293bd2e9a762b423d5b0b03cf02" +
	"65e50bba6ab37a4a1a75947564736f6c63430008120033"

// Probe contract functions. The invocation proxy addresses the deployed
// probe through these two names and nothing else.
const (
	StoreFunction    = "store"
	RetrieveFunction = "retrieve"
)
