package packet

// Client → server opcodes.
const (
	C_OPCODE_HELLO    byte = 1 // name\0 password\0
	C_OPCODE_CONTROLS byte = 2 // control frame
	C_OPCODE_SET_NAME byte = 3 // name\0
)

// Server → client opcodes.
const (
	S_OPCODE_WELCOME             byte = 64 // connection id (D)
	S_OPCODE_REJECT              byte = 65 // reason\0
	S_OPCODE_SET_CONTROLLED_NODE byte = 66 // entity id (DU), 0 = none
	S_OPCODE_ENTITY_STATE        byte = 67 // entity id (DU), type id (DU), 12 floats
	S_OPCODE_ENTITY_REMOVE       byte = 68 // entity id (DU)
)

// Opcodes at or above CustomOpcodeBase are reserved for messages defined by
// the game built on top of the core.
const CustomOpcodeBase byte = 128
