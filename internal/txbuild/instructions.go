package txbuild

import (
	"encoding/binary"

	"solana-sniper/internal/amm"
	"solana-sniper/internal/solana"
)

// TokenAccountSize is the serialized size of an SPL token account; the
// rent-exemption minimum is fetched for this size.
const TokenAccountSize = 165

// Compute budget instruction discriminators.
const (
	computeBudgetSetUnitLimit = 2
	computeBudgetSetUnitPrice = 3
)

// System program instruction indexes.
const (
	systemTransfer              = 2
	systemCreateAccountWithSeed = 3
)

// Token program instruction indexes.
const (
	tokenInitializeAccount = 1
	tokenCloseAccount      = 9
)

// raydiumSwapBaseIn is the AMM v4 swap instruction discriminator.
const raydiumSwapBaseIn = 9

// SetComputeUnitLimit caps the compute units the transaction may consume.
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.Instruction{
		ProgramID: solana.ComputeBudgetProgram,
		Data:      data,
	}
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per unit.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.Instruction{
		ProgramID: solana.ComputeBudgetProgram,
		Data:      data,
	}
}

// CreateAccountWithSeed creates newAccount at the address derived from
// base and seed, funded and owned as given.
func CreateAccountWithSeed(from, newAccount, base solana.Pubkey, seed string, lamports, space uint64, owner solana.Pubkey) solana.Instruction {
	data := make([]byte, 0, 4+32+8+len(seed)+8+8+32)
	data = binary.LittleEndian.AppendUint32(data, systemCreateAccountWithSeed)
	data = append(data, base[:]...)
	data = binary.LittleEndian.AppendUint64(data, uint64(len(seed)))
	data = append(data, seed...)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner[:]...)

	accounts := []solana.AccountMeta{
		solana.Meta(from, true, true),
		solana.Meta(newAccount, false, true),
	}
	if base != from {
		accounts = append(accounts, solana.Meta(base, true, false))
	}
	return solana.Instruction{
		ProgramID: solana.SystemProgram,
		Accounts:  accounts,
		Data:      data,
	}
}

// Transfer moves lamports between system accounts.
func Transfer(from, to solana.Pubkey, lamports uint64) solana.Instruction {
	data := make([]byte, 0, 12)
	data = binary.LittleEndian.AppendUint32(data, systemTransfer)
	data = binary.LittleEndian.AppendUint64(data, lamports)
	return solana.Instruction{
		ProgramID: solana.SystemProgram,
		Accounts: []solana.AccountMeta{
			solana.Meta(from, true, true),
			solana.Meta(to, false, true),
		},
		Data: data,
	}
}

// InitializeTokenAccount initializes account as a token account for mint
// owned by owner.
func InitializeTokenAccount(account, mint, owner solana.Pubkey) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.TokenProgram,
		Accounts: []solana.AccountMeta{
			solana.Meta(account, false, true),
			solana.Meta(mint, false, false),
			solana.Meta(owner, false, false),
			solana.Meta(solana.SysvarRent, false, false),
		},
		Data: []byte{tokenInitializeAccount},
	}
}

// CloseTokenAccount closes account, sending its lamports to dest.
func CloseTokenAccount(account, dest, owner solana.Pubkey) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.TokenProgram,
		Accounts: []solana.AccountMeta{
			solana.Meta(account, false, true),
			solana.Meta(dest, false, true),
			solana.Meta(owner, true, false),
		},
		Data: []byte{tokenCloseAccount},
	}
}

// CreateAssociatedTokenAccount creates wallet's ATA for mint, paid by
// payer.
func CreateAssociatedTokenAccount(payer, wallet, mint solana.Pubkey) (solana.Instruction, error) {
	ata, err := solana.AssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: solana.AssociatedTokenProgram,
		Accounts: []solana.AccountMeta{
			solana.Meta(payer, true, true),
			solana.Meta(ata, false, true),
			solana.Meta(wallet, false, false),
			solana.Meta(mint, false, false),
			solana.Meta(solana.SystemProgram, false, false),
			solana.Meta(solana.TokenProgram, false, false),
			solana.Meta(solana.SysvarRent, false, false),
		},
	}, nil
}

// Swap builds the AMM v4 swap-base-in instruction moving amountIn from
// userSource to userDest, reverting unless at least minimumOut arrives.
func Swap(keys *amm.PoolKeys, userSource, userDest, owner solana.Pubkey, amountIn, minimumOut uint64) solana.Instruction {
	data := make([]byte, 17)
	data[0] = raydiumSwapBaseIn
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minimumOut)

	return solana.Instruction{
		ProgramID: amm.RaydiumAMMProgram,
		Accounts: []solana.AccountMeta{
			solana.Meta(keys.AmmID, false, true),
			solana.Meta(keys.Authority, false, false),
			solana.Meta(keys.OpenOrders, false, true),
			solana.Meta(keys.TargetOrders, false, true),
			solana.Meta(keys.BaseVault, false, true),
			solana.Meta(keys.QuoteVault, false, true),
			solana.Meta(userSource, false, true),
			solana.Meta(userDest, false, true),
			solana.Meta(owner, true, false),
		},
		Data: data,
	}
}
