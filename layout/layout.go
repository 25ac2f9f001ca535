// Package layout defines the versioned tree schema shared by the prover and
// the verifier: where every field of the rollup state lives in the binary
// Merkle tree, how basic values pack into 32-byte chunks, and what the zero
// value of every subtree is. Both sides compile the same schema, so a
// gindex means the same thing in a generated trace and in a replayed step.
package layout

import "encoding/binary"

// SchemaVersion identifies the tree layout. Traces and witnesses produced
// under a different schema are not interchangeable.
const SchemaVersion = 1

// Capacities. Lists are fixed-capacity with an explicit length leaf, so
// every field has a stable gindex regardless of how full the list is.
const (
	NumContracts    = 256
	MaxCodeBytes    = 1024
	MaxCells        = 1024
	MaxInputBytes   = 1024
	MaxOutputBytes  = 1024
	MaxStackEntries = 1024

	BytesPerChunk  = 32
	U32sPerChunk   = 8
	ByteChunks     = MaxCodeBytes / BytesPerChunk   // 32 chunks per byte list
	StackChunks    = MaxStackEntries / U32sPerChunk // 128 chunks for the loop stack
	ByteBodyDepth  = 5
	StackBodyDepth = 7

	// MaxLeafDepth is the deepest leaf in the schema, a code or cells
	// chunk of the last contract slot.
	MaxLeafDepth = 17
)

// Top-level regions. The root has the contracts vector on the left and the
// ephemeral execution container on the right.
const (
	GindexRoot      uint64 = 1
	GindexContracts uint64 = 2
	GindexExec      uint64 = 3
)

// Execution container slots (16 slots, depth 4 below GindexExec).
const (
	GindexExecContract uint64 = 48
	GindexExecPC       uint64 = 49
	GindexExecInPtr    uint64 = 50
	GindexExecStatus   uint64 = 51
	GindexExecGas      uint64 = 52
	gindexInputList    uint64 = 53
	gindexStackList    uint64 = 54
	gindexOutputList   uint64 = 55
	gindexSnapshot     uint64 = 56
	gindexSnapCells    uint64 = 112
	GindexSnapPtr      uint64 = 113
)

// A list node L holds its body subtree at 2L and its length leaf at 2L+1.

func listBody(l uint64) uint64 { return 2 * l }

func listLen(l uint64) uint64 { return 2*l + 1 }

func bodyChunk(l uint64, depth uint, k uint64) uint64 {
	return listBody(l)<<depth + k
}

// Derived execution-container gindices.
var (
	GindexInputLen    = listLen(gindexInputList)
	GindexStackLen    = listLen(gindexStackList)
	GindexOutputLen   = listLen(gindexOutputList)
	GindexSnapCellsLen = listLen(gindexSnapCells)
)

// InputChunk returns the gindex of input body chunk k.
func InputChunk(k uint64) uint64 { return bodyChunk(gindexInputList, ByteBodyDepth, k) }

// StackChunk returns the gindex of loop-stack body chunk k.
func StackChunk(k uint64) uint64 { return bodyChunk(gindexStackList, StackBodyDepth, k) }

// OutputChunk returns the gindex of output body chunk k.
func OutputChunk(k uint64) uint64 { return bodyChunk(gindexOutputList, ByteBodyDepth, k) }

// SnapCellsChunk returns the gindex of snapshot-cells body chunk k.
func SnapCellsChunk(k uint64) uint64 { return bodyChunk(gindexSnapCells, ByteBodyDepth, k) }

// ContractRoot returns the gindex of contract slot c in the contracts
// vector (256 slots, depth 8 below GindexContracts).
func ContractRoot(c uint8) uint64 { return 512 + uint64(c) }

// Contract container fields (4 slots, depth 2 below the contract root):
// field 0 code list, field 1 cells list, field 2 ptr leaf, field 3 reserved.

// ContractCodeList returns the gindex of contract c's code list node.
func ContractCodeList(c uint8) uint64 { return 4 * ContractRoot(c) }

// ContractCellsList returns the gindex of contract c's cells list node.
func ContractCellsList(c uint8) uint64 { return 4*ContractRoot(c) + 1 }

// ContractPtr returns the gindex of contract c's tape pointer leaf.
func ContractPtr(c uint8) uint64 { return 4*ContractRoot(c) + 2 }

// ContractCodeLen returns the gindex of contract c's code length leaf.
func ContractCodeLen(c uint8) uint64 { return listLen(ContractCodeList(c)) }

// ContractCellsLen returns the gindex of contract c's cells length leaf.
func ContractCellsLen(c uint8) uint64 { return listLen(ContractCellsList(c)) }

// ContractCodeChunk returns the gindex of code body chunk k of contract c.
func ContractCodeChunk(c uint8, k uint64) uint64 {
	return bodyChunk(ContractCodeList(c), ByteBodyDepth, k)
}

// ContractCellsChunk returns the gindex of cells body chunk k of contract c.
func ContractCellsChunk(c uint8, k uint64) uint64 {
	return bodyChunk(ContractCellsList(c), ByteBodyDepth, k)
}

// Leaf packing. Scalars sit little-endian at the start of their chunk,
// byte lists pack 32 per chunk, the u32 loop stack packs 8 per chunk.

// Uint64Leaf packs v little-endian into a 32-byte chunk.
func Uint64Leaf(v uint64) [32]byte {
	var c [32]byte
	binary.LittleEndian.PutUint64(c[:8], v)
	return c
}

// LeafUint64 reads a little-endian u64 from the start of a chunk.
func LeafUint64(c [32]byte) uint64 {
	return binary.LittleEndian.Uint64(c[:8])
}

// ByteLeaf packs a single byte into a 32-byte chunk.
func ByteLeaf(b byte) [32]byte {
	var c [32]byte
	c[0] = b
	return c
}

// LeafByte reads the single byte packed by ByteLeaf.
func LeafByte(c [32]byte) byte { return c[0] }

// ChunkByte reads byte i (0..31) of a packed byte chunk.
func ChunkByte(c [32]byte, i int) byte { return c[i] }

// WithChunkByte returns c with byte i replaced.
func WithChunkByte(c [32]byte, i int, b byte) [32]byte {
	c[i] = b
	return c
}

// ChunkUint32 reads little-endian u32 entry i (0..7) of a stack chunk.
func ChunkUint32(c [32]byte, i int) uint32 {
	return binary.LittleEndian.Uint32(c[4*i : 4*i+4])
}

// WithChunkUint32 returns c with u32 entry i replaced.
func WithChunkUint32(c [32]byte, i int, v uint32) [32]byte {
	binary.LittleEndian.PutUint32(c[4*i:4*i+4], v)
	return c
}
