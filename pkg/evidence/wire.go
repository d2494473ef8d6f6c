package evidence

import "encoding/json"

// The wire* types mirror the canonical camelCase JSON keys of spec §6.1
// exactly as received over the wire, before any validation. Unknown keys
// are ignored automatically by encoding/json's default decoding
// (forward compatibility, spec §6.1).

type wireEvidence struct {
	Version               string              `json:"version"`
	ChainID               json.Number         `json:"chainId"`
	SafeAddress           string              `json:"safeAddress"`
	SafeTxHash            string              `json:"safeTxHash"`
	EthereumTxHash        *string             `json:"ethereumTxHash"`
	ConfirmationsRequired json.Number         `json:"confirmationsRequired"`
	Confirmations         []wireConfirmation  `json:"confirmations"`
	Transaction           wireTransaction     `json:"transaction"`
	DataDecoded           *wireDecodedCall    `json:"dataDecoded"`
	Sources               wireSources         `json:"sources"`
	PackagedAt            string              `json:"packagedAt"`
	OnchainPolicyProof    *wirePolicyProof    `json:"onchainPolicyProof"`
	Simulation            *wireSimulation     `json:"simulation"`
	ConsensusProof        *wireConsensusProof `json:"consensusProof"`
	ExportContract        json.RawMessage     `json:"exportContract"`
}

type wireTransaction struct {
	To             string `json:"to"`
	Value          string `json:"value"`
	Data           string `json:"data"`
	Operation      int    `json:"operation"`
	SafeTxGas      string `json:"safeTxGas"`
	BaseGas        string `json:"baseGas"`
	GasPrice       string `json:"gasPrice"`
	GasToken       string `json:"gasToken"`
	RefundReceiver string `json:"refundReceiver"`
	Nonce          string `json:"nonce"`
}

type wireConfirmation struct {
	Owner          string `json:"owner"`
	Signature      string `json:"signature"`
	SubmissionDate string `json:"submissionDate"`
}

type wireCallParam struct {
	Name         string               `json:"name"`
	Type         string               `json:"type"`
	Value        interface{}          `json:"value"`
	ValueDecoded []wireDecodedInnerTx `json:"valueDecoded,omitempty"`
}

type wireDecodedCall struct {
	Method     string          `json:"method"`
	Parameters []wireCallParam `json:"parameters"`
}

type wireDecodedInnerTx struct {
	To        *string          `json:"to"`
	Value     *string          `json:"value"`
	Operation *int             `json:"operation"`
	Data      *string          `json:"data"`
	DataDecoded *wireDecodedCall `json:"dataDecoded"`
}

type wireSources struct {
	SafeAPIURL     string `json:"safeApiUrl"`
	TransactionURL string `json:"transactionUrl"`
}

type wireStorageProof struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Proof []string `json:"proof"`
}

type wireAccountProof struct {
	Address      string             `json:"address"`
	Balance      string             `json:"balance"`
	Nonce        string             `json:"nonce"`
	CodeHash     string             `json:"codeHash"`
	StorageHash  string             `json:"storageHash"`
	Proof        []string           `json:"proof"`
	StorageProof []wireStorageProof `json:"storageProof"`
}

type wireDecodedPolicy struct {
	Owners          []string `json:"owners"`
	Threshold       json.Number `json:"threshold"`
	Nonce           json.Number `json:"nonce"`
	Modules         []string `json:"modules"`
	Guard           string   `json:"guard"`
	FallbackHandler string   `json:"fallbackHandler"`
	Singleton       string   `json:"singleton"`
}

type wirePolicyProof struct {
	BlockNumber   json.Number       `json:"blockNumber"`
	StateRoot     string            `json:"stateRoot"`
	AccountProof  wireAccountProof  `json:"accountProof"`
	DecodedPolicy wireDecodedPolicy `json:"decodedPolicy"`
}

type wireLog struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

type wireStateDiff struct {
	Address string `json:"address"`
	Key     string `json:"key"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

type wireSimulation struct {
	Success        bool            `json:"success"`
	ReturnData     *string         `json:"returnData"`
	GasUsed        string          `json:"gasUsed"`
	Logs           []wireLog       `json:"logs"`
	StateDiffs     []wireStateDiff `json:"stateDiffs,omitempty"`
	BlockNumber    json.Number     `json:"blockNumber"`
	BlockTimestamp *string         `json:"blockTimestamp"`
}

type wireConsensusProof struct {
	Mode           string      `json:"mode"`
	StateRoot      string      `json:"stateRoot"`
	BlockNumber    json.Number `json:"blockNumber"`
	Bootstrap      json.RawMessage `json:"bootstrap,omitempty"`
	Updates        json.RawMessage `json:"updates,omitempty"`
	FinalityUpdate json.RawMessage `json:"finalityUpdate,omitempty"`
	CheckpointRoot string      `json:"checkpointRoot,omitempty"`
	ProofPayload   string      `json:"proofPayload,omitempty"`
}
