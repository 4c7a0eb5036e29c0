package dxb

import (
	"bytes"
	"compress/zlib"
	"io"
)

const (
	sigScenes    = "scene-metadata"
	sigFunctions = "function-metadata"
	sigDefs      = "definition-metadata"
	sigCode      = "bytecode"
	sigStrings   = "string-table"
	sigTrans     = "translation-table"
	sigExternals = "external-function-list"
	sigHeader    = "header"
	sigPayload   = "payload"
)

const (
	flagCompressed        = 1 << 0
	flagInternalTranslation = 1 << 1
)

// Decode parses a complete DXB buffer into a *Binary, or returns a
// *DecodeError describing exactly where parsing failed. A buffer that
// parses but fails Binary.Validate is reported with Validate's plain
// error instead.
//
// Supported versions are 3 (full support) and 4 (partial: the extra
// per-section size prefixes are consumed and discarded rather than used
// for lazy skipping, since this interpreter always needs every section
// anyway).
func Decode(data []byte) (*Binary, error) {
	c := NewCursor(data)

	if err := c.Signature(sigHeader, "DNX"); err != nil {
		return nil, err
	}
	version, err := c.U8(sigHeader)
	if err != nil {
		return nil, err
	}
	if version != 3 && version != 4 {
		return nil, &DecodeError{Kind: ErrBadVersion, Section: sigHeader, Offset: c.Pos - 1}
	}
	flags, err := c.U8(sigHeader)
	if err != nil {
		return nil, err
	}
	if _, err := c.U32(sigHeader); err != nil { // uncompressed_size, informational
		return nil, err
	}

	var payload []byte
	if flags&flagCompressed != 0 {
		compressedSize, err := c.U32(sigHeader)
		if err != nil {
			return nil, err
		}
		compressed, err := c.Bytes(sigHeader, int(compressedSize))
		if err != nil {
			return nil, err
		}
		payload, err = inflate(compressed)
		if err != nil {
			return nil, err
		}
	} else {
		payload = c.Data[c.Pos:]
	}

	p := NewCursor(payload)
	b := &Binary{
		Version:           version,
		TranslationLoaded: flags&flagInternalTranslation != 0,
	}

	if version == 4 {
		if _, err := p.U32(sigScenes); err != nil {
			return nil, err
		}
	}
	b.Scenes, err = decodeSymbolTables(p, sigScenes)
	if err != nil {
		return nil, err
	}

	if version == 4 {
		if _, err := p.U32(sigFunctions); err != nil {
			return nil, err
		}
	}
	b.Functions, err = decodeSymbolTables(p, sigFunctions)
	if err != nil {
		return nil, err
	}

	if version == 4 {
		if _, err := p.U32(sigDefs); err != nil {
			return nil, err
		}
	}
	b.Definitions, err = decodeDefinitions(p)
	if err != nil {
		return nil, err
	}

	if version == 4 {
		if _, err := p.U32(sigCode); err != nil {
			return nil, err
		}
	}
	codeLen, err := p.U32(sigCode)
	if err != nil {
		return nil, err
	}
	b.Instructions, err = p.Bytes(sigCode, int(codeLen))
	if err != nil {
		return nil, err
	}

	if version == 4 {
		if _, err := p.U32(sigStrings); err != nil {
			return nil, err
		}
	}
	b.StringTable, err = decodeStringTable(p, sigStrings)
	if err != nil {
		return nil, err
	}

	if b.TranslationLoaded {
		if version == 4 {
			if _, err := p.U32(sigTrans); err != nil {
				return nil, err
			}
		}
		b.TranslationTable, err = decodeStringTable(p, sigTrans)
		if err != nil {
			return nil, err
		}
	}

	if version == 4 {
		if _, err := p.U32(sigExternals); err != nil {
			return nil, err
		}
	}
	b.ExternalFunctionList, err = decodeU32List(p, sigExternals)
	if err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeSymbolTables(c *Cursor, section string) ([]SymbolTable, error) {
	count, err := c.U32(section)
	if err != nil {
		return nil, err
	}
	tables := make([]SymbolTable, count)
	for i := range tables {
		symbol, err := c.U32(section)
		if err != nil {
			return nil, err
		}
		indicesCount, err := c.U16(section)
		if err != nil {
			return nil, err
		}
		indices := make([]int32, indicesCount)
		for j := range indices {
			v, err := c.I32(section)
			if err != nil {
				return nil, err
			}
			indices[j] = v
		}
		tables[i] = SymbolTable{Symbol: symbol, InstructionIndices: indices}
	}
	return tables, nil
}

func decodeDefinitions(c *Cursor) ([]Definition, error) {
	count, err := c.U32(sigDefs)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, count)
	for i := range defs {
		symbol, err := c.U32(sigDefs)
		if err != nil {
			return nil, err
		}
		reference, err := c.U32(sigDefs)
		if err != nil {
			return nil, err
		}
		instructionIndex, err := c.I32(sigDefs)
		if err != nil {
			return nil, err
		}
		defs[i] = Definition{Symbol: symbol, Reference: reference, InstructionIndex: instructionIndex}
	}
	return defs, nil
}

func decodeStringTable(c *Cursor, section string) ([]string, error) {
	count, err := c.U32(section)
	if err != nil {
		return nil, err
	}
	strs := make([]string, count)
	for i := range strs {
		s, err := c.CString(section)
		if err != nil {
			return nil, err
		}
		strs[i] = s
	}
	return strs, nil
}

func decodeU32List(c *Cursor, section string) ([]uint32, error) {
	count, err := c.U32(section)
	if err != nil {
		return nil, err
	}
	vals := make([]uint32, count)
	for i := range vals {
		v, err := c.U32(section)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func inflate(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &DecodeError{Kind: ErrDecompression, Section: sigPayload, Detail: err.Error()}
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Kind: ErrDecompression, Section: sigPayload, Detail: err.Error()}
	}
	return out, nil
}
