package solana

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	Pubkey     Pubkey
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation before message compilation.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// Meta is shorthand for constructing an AccountMeta.
func Meta(pk Pubkey, signer, writable bool) AccountMeta {
	return AccountMeta{Pubkey: pk, IsSigner: signer, IsWritable: writable}
}
