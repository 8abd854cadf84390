package constants

const (
	AppName         = "maskwallet"
	NetworksFile    = "networks.json"
	HiddenListFile  = "hidden_list.json"
	AddressBookFile = "address_book.json"

	SchemaV1      = 1
	FilePerm      = 0o600
	DirectoryPerm = 0o700

	NativeAddr = "0x0000000000000000000000000000000000000000"

	// EnvVar selects the config sub folder (local/develop) and the env prefix.
	EnvVar    = "MASK_ENV"
	EnvPrefix = "MASK"
)

// Chain ids the fee logic cares about.
const (
	ChainIDMainnet  uint64 = 1
	ChainIDOptimism uint64 = 10
	ChainIDBSC      uint64 = 56
	ChainIDPolygon  uint64 = 137
	ChainIDBase     uint64 = 8453
	ChainIDArbitrum uint64 = 42161
)

// Features understood by the capability resolver.
const (
	FeatureEIP1559 = "EIP1559"
)
