package txbuilder

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Upgradeable loader instruction tags, serialized as little endian u32 enum discriminant
const (
	loaderInitializeBuffer uint32 = 0
	loaderWrite            uint32 = 1
	loaderSetAuthority     uint32 = 4
)

// BufferAccountSize returns account space needed to hold payloadLen bytes in a buffer
func BufferAccountSize(payloadLen int) uint64 {
	return uint64(payloadLen) + bufferMetadataSize
}

func newInitializeBufferInstruction(buffer, authority solana.PublicKey) solana.Instruction {
	data := binary.LittleEndian.AppendUint32(nil, loaderInitializeBuffer)

	return solana.NewInstruction(
		solana.BPFLoaderUpgradeableProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(buffer, true, false),
			solana.NewAccountMeta(authority, false, false),
		},
		data,
	)
}

func newWriteInstruction(buffer, authority solana.PublicKey, offset uint32, bytes []byte) solana.Instruction {
	data := make([]byte, 0, 16+len(bytes))
	data = binary.LittleEndian.AppendUint32(data, loaderWrite)
	data = binary.LittleEndian.AppendUint32(data, offset)
	data = binary.LittleEndian.AppendUint64(data, uint64(len(bytes)))
	data = append(data, bytes...)

	return solana.NewInstruction(
		solana.BPFLoaderUpgradeableProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(buffer, true, false),
			solana.NewAccountMeta(authority, false, true),
		},
		data,
	)
}

func newSetAuthorityInstruction(buffer, authority, newAuthority solana.PublicKey) solana.Instruction {
	data := binary.LittleEndian.AppendUint32(nil, loaderSetAuthority)

	return solana.NewInstruction(
		solana.BPFLoaderUpgradeableProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(buffer, true, false),
			solana.NewAccountMeta(authority, false, true),
			solana.NewAccountMeta(newAuthority, false, false),
		},
		data,
	)
}

// DecodeWrite parses loader Write instruction data into offset and bytes
func DecodeWrite(data []byte) (uint32, []byte, bool) {
	if len(data) < 16 || binary.LittleEndian.Uint32(data) != loaderWrite {
		return 0, nil, false
	}

	offset := binary.LittleEndian.Uint32(data[4:])
	n := binary.LittleEndian.Uint64(data[8:])
	if uint64(len(data)-16) != n {
		return 0, nil, false
	}

	return offset, data[16:], true
}
