package solana

// Commitment is a confirmation level requested from or reported by a node.
type Commitment string

// Commitment levels, weakest first.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Ordinal maps a commitment to its position in the
// processed < confirmed < finalized ordering. Unknown levels rank below
// processed so they never satisfy a requested commitment.
func (c Commitment) Ordinal() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// LatestBlockhash is the result of getLatestBlockhash.
type LatestBlockhash struct {
	Blockhash            string
	LastValidBlockHeight uint64
}

// SignatureStatus is one entry from getSignatureStatuses. A nil entry in
// the response means the node has not seen the signature.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int
	Err                interface{}
	ConfirmationStatus Commitment
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for
// getSignaturesForAddress.
type SignaturesOpts struct {
	Before string
	Until  string
	Limit  int
}

// TokenAmount is a token quantity with its display form.
type TokenAmount struct {
	Amount         string   `json:"amount"`
	Decimals       int      `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString"`
}

// TokenBalance is a pre/post token balance entry from transaction meta.
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// TransactionMeta contains the execution metadata of a confirmed
// transaction, including the balance snapshots the price oracle reads.
type TransactionMeta struct {
	Err               interface{}
	Fee               uint64
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	LogMessages       []string
}

// CompiledInstruction is one instruction of a confirmed transaction,
// with accounts as indexes into the message account keys.
type CompiledInstruction struct {
	ProgramIDIndex int   `json:"programIdIndex"`
	Accounts       []int `json:"accounts"`
}

// Transaction represents a confirmed transaction as returned by
// getTransaction.
type Transaction struct {
	Slot         int64
	Signature    string
	BlockTime    int64 // Unix timestamp (seconds)
	Meta         *TransactionMeta
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// InstructionsFor returns the transaction's instructions executed by
// program, skipping any whose indexes fall outside the account keys.
func (t *Transaction) InstructionsFor(program string) []CompiledInstruction {
	var out []CompiledInstruction
	for _, in := range t.Instructions {
		if in.ProgramIDIndex < 0 || in.ProgramIDIndex >= len(t.AccountKeys) {
			continue
		}
		if t.AccountKeys[in.ProgramIDIndex] == program {
			out = append(out, in)
		}
	}
	return out
}

// AccountInfo represents on-chain account state.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	RentEpoch  uint64
}
