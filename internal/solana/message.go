package solana

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrAccountNotInMessage is returned when an instruction references an
// account that message compilation failed to index.
var ErrAccountNotInMessage = errors.New("account not present in compiled message")

// messageVersionPrefix marks a v0 versioned message.
const messageVersionPrefix = 0x80

// Message is a compiled v0 transaction message: deduplicated, ordered
// account keys plus instructions referencing them by index.
type Message struct {
	payer        Pubkey
	accountKeys  []Pubkey
	numSigners   int
	numROSigned  int
	numROUnsig   int
	blockhash    [32]byte
	instructions []Instruction
}

// CompileMessage builds a v0 message for the given payer, instruction
// sequence and recent blockhash. Account ordering follows the wire rules:
// writable signers (payer first), readonly signers, writable non-signers,
// readonly non-signers.
func CompileMessage(payer Pubkey, instructions []Instruction, blockhash string) (*Message, error) {
	rawHash, err := base58.Decode(blockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(rawHash) != 32 {
		return nil, fmt.Errorf("decode blockhash: got %d bytes, want 32", len(rawHash))
	}

	type accountFlags struct {
		signer   bool
		writable bool
	}
	flags := map[Pubkey]*accountFlags{
		payer: {signer: true, writable: true},
	}
	order := []Pubkey{payer}

	upsert := func(pk Pubkey, signer, writable bool) {
		f, ok := flags[pk]
		if !ok {
			f = &accountFlags{}
			flags[pk] = f
			order = append(order, pk)
		}
		f.signer = f.signer || signer
		f.writable = f.writable || writable
	}

	for _, ix := range instructions {
		for _, acc := range ix.Accounts {
			upsert(acc.Pubkey, acc.IsSigner, acc.IsWritable)
		}
		upsert(ix.ProgramID, false, false)
	}

	var signerW, signerRO, plainW, plainRO []Pubkey
	for _, pk := range order {
		f := flags[pk]
		switch {
		case f.signer && f.writable:
			signerW = append(signerW, pk)
		case f.signer:
			signerRO = append(signerRO, pk)
		case f.writable:
			plainW = append(plainW, pk)
		default:
			plainRO = append(plainRO, pk)
		}
	}

	keys := make([]Pubkey, 0, len(order))
	keys = append(keys, signerW...)
	keys = append(keys, signerRO...)
	keys = append(keys, plainW...)
	keys = append(keys, plainRO...)

	msg := &Message{
		payer:        payer,
		accountKeys:  keys,
		numSigners:   len(signerW) + len(signerRO),
		numROSigned:  len(signerRO),
		numROUnsig:   len(plainRO),
		instructions: instructions,
	}
	copy(msg.blockhash[:], rawHash)
	return msg, nil
}

// NumSigners returns the number of required signatures.
func (m *Message) NumSigners() int {
	return m.numSigners
}

// AccountKeys returns the compiled account key list in wire order.
func (m *Message) AccountKeys() []Pubkey {
	return m.accountKeys
}

func (m *Message) keyIndex(pk Pubkey) (byte, error) {
	for i, k := range m.accountKeys {
		if k == pk {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrAccountNotInMessage, pk)
}

// Serialize encodes the message in the v0 wire format.
func (m *Message) Serialize() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(messageVersionPrefix)
	buf.WriteByte(byte(m.numSigners))
	buf.WriteByte(byte(m.numROSigned))
	buf.WriteByte(byte(m.numROUnsig))

	writeCompactU16(&buf, len(m.accountKeys))
	for _, k := range m.accountKeys {
		buf.Write(k[:])
	}

	buf.Write(m.blockhash[:])

	writeCompactU16(&buf, len(m.instructions))
	for _, ix := range m.instructions {
		progIdx, err := m.keyIndex(ix.ProgramID)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(progIdx)

		writeCompactU16(&buf, len(ix.Accounts))
		for _, acc := range ix.Accounts {
			idx, err := m.keyIndex(acc.Pubkey)
			if err != nil {
				return nil, err
			}
			buf.WriteByte(idx)
		}

		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}

	// No address table lookups.
	writeCompactU16(&buf, 0)

	return buf.Bytes(), nil
}

// SignedTransaction holds a fully signed transaction ready for submission.
type SignedTransaction struct {
	// Signature is the base58 fee-payer signature, the transaction's
	// external identity.
	Signature string
	// Wire is the serialized signatures-plus-message byte stream.
	Wire []byte
}

// SignTransaction serializes the message and signs it with the given
// keypairs, which must cover all required signer slots in order.
func SignTransaction(m *Message, signers ...*Keypair) (*SignedTransaction, error) {
	if len(signers) != m.numSigners {
		return nil, fmt.Errorf("message needs %d signers, got %d", m.numSigners, len(signers))
	}

	msgBytes, err := m.Serialize()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeCompactU16(&buf, len(signers))

	var first string
	for i, kp := range signers {
		if kp.Pubkey() != m.accountKeys[i] {
			return nil, fmt.Errorf("signer %d is %s, message expects %s", i, kp.Pubkey(), m.accountKeys[i])
		}
		sig := kp.Sign(msgBytes)
		if i == 0 {
			first = base58.Encode(sig)
		}
		buf.Write(sig)
	}
	buf.Write(msgBytes)

	return &SignedTransaction{Signature: first, Wire: buf.Bytes()}, nil
}

// writeCompactU16 appends the shortvec encoding used by transaction
// messages: 7 bits per byte, high bit as continuation flag.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
