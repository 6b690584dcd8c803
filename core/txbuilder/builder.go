package txbuilder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/pyropy/bufwriter/core/constants"
	"github.com/pyropy/bufwriter/core/faults"
	"github.com/pyropy/bufwriter/core/model"
)

const bufferMetadataSize = constants.BUFFER_METADATA_SIZE

// Signer signs transaction messages. solana.PrivateKey satisfies it.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(payload []byte) (solana.Signature, error)
}

// Fees configures compute budget instructions prepended to every transaction.
// Zero value disables them.
type Fees struct {
	UnitLimit uint32
	UnitPrice uint64
}

func (f Fees) Enabled() bool {
	return f.UnitLimit > 0 || f.UnitPrice > 0
}

// MaxChunkSize returns largest chunk a write transaction can carry
func MaxChunkSize(fees Fees) int {
	if fees.Enabled() {
		return constants.FEE_CHUNK_SIZE_BYTES
	}

	return constants.CHUNK_SIZE_BYTES
}

type Builder struct {
	authority Signer
	fees      Fees
}

func NewBuilder(authority Signer, fees Fees) *Builder {
	return &Builder{
		authority: authority,
		fees:      fees,
	}
}

func (b *Builder) Authority() solana.PublicKey {
	return b.authority.PublicKey()
}

func (b *Builder) Fees() Fees {
	return b.fees
}

// CreateBuffer builds transaction that allocates buffer account for payloadLen bytes,
// funds it with lamports and initializes it with builder authority.
func (b *Builder) CreateBuffer(buffer Signer, lamports uint64, payloadLen int, blockhash solana.Hash) (*solana.Transaction, error) {
	if lamports == 0 {
		return nil, faults.Newf(faults.CodeZeroFunding, "create buffer", "refusing to create unfunded buffer")
	}

	authority := b.authority.PublicKey()
	createAccount := system.NewCreateAccountInstruction(
		lamports,
		BufferAccountSize(payloadLen),
		solana.BPFLoaderUpgradeableProgramID,
		authority,
		buffer.PublicKey(),
	).Build()

	instructions := append(b.feeInstructions(),
		createAccount,
		newInitializeBufferInstruction(buffer.PublicKey(), authority),
	)

	return b.build("create buffer", instructions, blockhash, b.authority, buffer)
}

// Write builds transaction that writes chunk into buffer at chunk offset
func (b *Builder) Write(buffer solana.PublicKey, chunk model.Chunk, blockhash solana.Hash) (*solana.Transaction, error) {
	if len(chunk.Data) == 0 {
		return nil, faults.Newf(faults.CodeBuildFailed, "write", "empty chunk at offset %d", chunk.Offset)
	}

	instructions := append(b.feeInstructions(),
		newWriteInstruction(buffer, b.authority.PublicKey(), chunk.Offset, chunk.Data),
	)

	return b.build("write", instructions, blockhash, b.authority)
}

// SetBufferAuthority builds transaction that hands buffer authority over to newAuthority
func (b *Builder) SetBufferAuthority(buffer, newAuthority solana.PublicKey, blockhash solana.Hash) (*solana.Transaction, error) {
	instructions := []solana.Instruction{
		newSetAuthorityInstruction(buffer, b.authority.PublicKey(), newAuthority),
	}

	return b.build("set buffer authority", instructions, blockhash, b.authority)
}

func (b *Builder) feeInstructions() []solana.Instruction {
	if !b.fees.Enabled() {
		return []solana.Instruction{}
	}

	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(b.fees.UnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(b.fees.UnitPrice).Build(),
	}
}

func (b *Builder) build(op string, instructions []solana.Instruction, blockhash solana.Hash, signers ...Signer) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(b.authority.PublicKey()))
	if err != nil {
		return nil, faults.New(faults.CodeBuildFailed, op, err)
	}

	if err := Sign(tx, signers...); err != nil {
		return nil, faults.New(faults.CodeBuildFailed, op, err)
	}

	size, err := SerializedSize(tx)
	if err != nil {
		return nil, faults.New(faults.CodeBuildFailed, op, err)
	}

	if size > constants.PACKET_DATA_SIZE {
		return nil, faults.Newf(faults.CodeBuildFailed, op, "transaction is %d bytes, limit is %d", size, constants.PACKET_DATA_SIZE)
	}

	return tx, nil
}

// Sign signs tx message with every signer required by the message header
func Sign(tx *solana.Transaction, signers ...Signer) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return err
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("message requires %d signatures but has %d keys", required, len(tx.Message.AccountKeys))
	}

	signatures := make([]solana.Signature, required)
	for i, key := range tx.Message.AccountKeys[:required] {
		signer := findSigner(key, signers)
		if signer == nil {
			return fmt.Errorf("missing signer for %s", key)
		}

		signatures[i], err = signer.Sign(msg)
		if err != nil {
			return err
		}
	}

	tx.Signatures = signatures
	return nil
}

func findSigner(key solana.PublicKey, signers []Signer) Signer {
	for _, s := range signers {
		if s.PublicKey().Equals(key) {
			return s
		}
	}

	return nil
}

// SignatureOf returns transaction id, the fee payer signature
func SignatureOf(tx *solana.Transaction) solana.Signature {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}
	}

	return tx.Signatures[0]
}

func SerializedSize(tx *solana.Transaction) (int, error) {
	b, err := tx.MarshalBinary()
	if err != nil {
		return 0, err
	}

	return len(b), nil
}
