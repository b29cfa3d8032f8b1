package script

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/txscript"
)

// appendPush appends a data push of the given bytes to dst. Unlike
// txscript.ScriptBuilder, short values are never folded into the small
// integer opcodes, so the envelope layout stays byte-exact for the values the
// ordinal protocol expects (e.g. the 0x01 content-type tag). The caller is
// responsible for keeping each chunk within txscript.MaxScriptElementSize.
func appendPush(dst, data []byte) []byte {
	n := len(data)

	switch {
	case n < txscript.OP_PUSHDATA1:
		dst = append(dst, byte(n))

	case n <= 0xff:
		dst = append(dst, txscript.OP_PUSHDATA1, byte(n))

	default:
		dst = append(dst, txscript.OP_PUSHDATA2)
		dst = binary.LittleEndian.AppendUint16(dst, uint16(n))
	}

	return append(dst, data...)
}
