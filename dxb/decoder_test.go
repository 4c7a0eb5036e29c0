package dxb

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"testing"
)

// buildV3 hand-assembles a minimal valid v3 DXB buffer with one scene
// ("intro", entry at instruction 0, no flag initializers), no functions,
// no definitions, a two-byte bytecode blob, one string, and no
// translation table — mirroring how go-flux's disasm_test.go hand-builds
// chunks rather than round-tripping through a compiler.
func buildV3(t *testing.T, compressed bool) []byte {
	t.Helper()

	var payload bytes.Buffer
	// scenes: count=1, {symbol=0, indices_count=1, indices=[0]}
	writeU32(&payload, 1)
	writeU32(&payload, 0)
	writeU16(&payload, 1)
	writeI32(&payload, 0)
	// functions: count=0
	writeU32(&payload, 0)
	// definitions: count=0
	writeU32(&payload, 0)
	// bytecode: len=2, {0x43, 0x00} (exit, nop)
	code := []byte{0x43, 0x00}
	writeU32(&payload, uint32(len(code)))
	payload.Write(code)
	// string table: count=1, "intro\0"
	writeU32(&payload, 1)
	payload.WriteString("intro\x00")
	// external-function-list: count=0
	writeU32(&payload, 0)

	body := payload.Bytes()

	var buf bytes.Buffer
	buf.WriteString("DNX")
	buf.WriteByte(3)
	var flags byte
	if compressed {
		flags |= flagCompressed
	}
	buf.WriteByte(flags)
	writeU32(&buf, uint32(len(body)))

	if compressed {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		if _, err := zw.Write(body); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		writeU32(&buf, uint32(zbuf.Len()))
		buf.Write(zbuf.Bytes())
	} else {
		buf.Write(body)
	}

	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) {
	writeU32(buf, uint32(v))
}

func TestDecodeUncompressed(t *testing.T) {
	bin, err := Decode(buildV3(t, false))
	if err != nil {
		t.Fatal(err)
	}
	if len(bin.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(bin.Scenes))
	}
	if bin.StringTable[bin.Scenes[0].Symbol] != "intro" {
		t.Fatalf("got %v", bin.StringTable)
	}
	if len(bin.Instructions) != 2 {
		t.Fatalf("expected 2 bytes of bytecode, got %d", len(bin.Instructions))
	}
}

func TestDecodeCompressed(t *testing.T) {
	bin, err := Decode(buildV3(t, true))
	if err != nil {
		t.Fatal(err)
	}
	if len(bin.Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(bin.Scenes))
	}
}

func TestDecodeBadSignature(t *testing.T) {
	data := buildV3(t, false)
	data[0] = 'X'
	_, err := Decode(data)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrBadSignature {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeBadVersion(t *testing.T) {
	data := buildV3(t, false)
	data[3] = 9
	_, err := Decode(data)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrBadVersion {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data := buildV3(t, false)
	_, err := Decode(data[:len(data)-3])
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrTruncated {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeBadCompression(t *testing.T) {
	data := buildV3(t, true)
	// corrupt the zlib magic (the stream starts right after the 4-byte
	// compressed_size field, at offset 13)
	data[13] ^= 0xFF
	data[14] ^= 0xFF
	_, err := Decode(data)
	de, ok := err.(*DecodeError)
	if !ok || de.Kind != ErrDecompression {
		t.Fatalf("got %v", err)
	}
}

func TestDecodeV4SkipsSectionSizePrefixes(t *testing.T) {
	// Wrap each v3 section in a u32 size prefix, per §4.1's v4 layout.
	var payload bytes.Buffer
	scenesSection := []byte{}
	{
		var b bytes.Buffer
		writeU32(&b, 1)
		writeU32(&b, 0)
		writeU16(&b, 1)
		writeI32(&b, 0)
		scenesSection = b.Bytes()
	}
	writeU32(&payload, uint32(len(scenesSection)))
	payload.Write(scenesSection)

	functionsSection := []byte{0, 0, 0, 0}
	writeU32(&payload, uint32(len(functionsSection)))
	payload.Write(functionsSection)

	defsSection := []byte{0, 0, 0, 0}
	writeU32(&payload, uint32(len(defsSection)))
	payload.Write(defsSection)

	code := []byte{0x43}
	var codeSection bytes.Buffer
	writeU32(&codeSection, uint32(len(code)))
	codeSection.Write(code)
	writeU32(&payload, uint32(codeSection.Len()))
	payload.Write(codeSection.Bytes())

	var stringsSection bytes.Buffer
	writeU32(&stringsSection, 1)
	stringsSection.WriteString("intro\x00")
	writeU32(&payload, uint32(stringsSection.Len()))
	payload.Write(stringsSection.Bytes())

	externalsSection := []byte{0, 0, 0, 0}
	writeU32(&payload, uint32(len(externalsSection)))
	payload.Write(externalsSection)

	var buf bytes.Buffer
	buf.WriteString("DNX")
	buf.WriteByte(4)
	buf.WriteByte(0)
	writeU32(&buf, uint32(payload.Len()))
	buf.Write(payload.Bytes())

	bin, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(bin.Scenes) != 1 || bin.StringTable[0] != "intro" {
		t.Fatalf("got %+v", bin)
	}
}
