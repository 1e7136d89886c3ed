// Package dicom implements the byte-level reading of a DICOM Part-10 file:
// preamble and file-meta detection, transfer-syntax-driven element framing,
// and dispatch of each decoded element to a callback registry.
package dicom

import (
	"context"
	"log/slog"
	"strings"

	"github.com/practical-imaging/dicomindex/dicomerr"
	"github.com/practical-imaging/dicomindex/registry"
	"github.com/practical-imaging/dicomindex/types"
)

const (
	preambleLen       = 128
	undefinedLength   = 0xFFFFFFFF
	pixelDataLenAlias = 0xFFFF // some writers emit this instead of 0xFFFFFFFF
)

// Parser turns a byte stream into a sequence of Elements and dispatches each
// to a Registry. One Parser instance can parse many files in sequence;
// per-file state (byte order, sentinel arming) lives on the stack of Parse,
// not on the Parser itself, so a single instance is safe to reuse serially.
type Parser struct {
	reg *registry.Registry
}

// NewParser creates a Parser that dispatches decoded elements to reg.
func NewParser(reg *registry.Registry) *Parser {
	return &Parser{reg: reg}
}

// Parse consumes data end-to-end: preamble, file meta, and dataset, calling
// back into the Parser's Registry for every element encountered. It returns
// a wrapped dicomerr.ErrIo/ErrBadMagic/ErrInconsistentLength on framing
// failure; value-level decode failures are the callback's responsibility and
// never abort the parse.
func (p *Parser) Parse(ctx context.Context, data []byte) error {
	source := NewByteSource(data)

	hasPreamble := len(data) >= preambleLen+4 && string(data[preambleLen:preambleLen+4]) == "DICM"

	var transferSyntaxUID string
	if hasPreamble {
		if err := source.Seek(preambleLen + 4); err != nil {
			return err
		}
		uid, err := p.parseFileMeta(ctx, source)
		if err != nil {
			return err
		}
		transferSyntaxUID = uid
	} else {
		if err := source.Seek(0); err != nil {
			return err
		}
		if source.Remaining() == 0 {
			return dicomerr.ErrBadMagic
		}
	}

	enc := types.Encoding{ImplicitVR: true}
	switch {
	case transferSyntaxUID == "":
		// No file meta (fallback mode) or an empty declared UID: Implicit VR
		// Little Endian, DICOM's default encoding.
	case !types.RecognizedDatasetTransferSyntaxes[transferSyntaxUID]:
		slog.WarnContext(ctx, "unrecognised transfer syntax, defaulting to implicit VR little endian",
			"transfer_syntax", transferSyntaxUID)
	default:
		enc = types.DatasetEncoding(transferSyntaxUID)
	}
	source.SetBigEndian(enc.BigEndian)

	armSentinel := enc.BigEndian && !enc.ImplicitVR

	return p.parseElements(ctx, source, enc.ImplicitVR, armSentinel, source.Len())
}

// parseFileMeta reads group-0x0002 elements, always Explicit VR Little
// Endian regardless of the dataset's eventual transfer syntax, dispatching
// each to the registry and returning the declared Transfer Syntax UID.
func (p *Parser) parseFileMeta(ctx context.Context, source *ByteSource) (string, error) {
	var transferSyntaxUID string
	for source.Remaining() >= 4 {
		peek, err := source.Peek(2)
		if err != nil {
			return "", err
		}
		if DecodeUint16(peek, false) != 0x0002 {
			break
		}
		elem, err := p.readElement(ctx, source, false)
		if err != nil {
			return "", err
		}
		p.reg.Dispatch(ctx, elem.Tag, elem.VR, elem.Value)
		if elem.Tag == types.TagTransferSyntaxUID {
			transferSyntaxUID = strings.TrimRight(string(elem.Value), "\x00 ")
		}
	}
	return transferSyntaxUID, nil
}

// parseElements walks elements from source's current position up to end
// (an absolute offset), dispatching each to the registry. It is used both
// for the top-level dataset and, recursively, for sequence items.
func (p *Parser) parseElements(ctx context.Context, source *ByteSource, implicitVR, armSentinel bool, end int64) error {
	for source.Position() < end {
		startPos := source.Position()
		elem, length, err := p.readElementWithLength(ctx, source, implicitVR)
		if err != nil {
			return err
		}

		if armSentinel && elem.Tag == types.TagByteOrderSentinel {
			valueEndPos := source.Position()
			rewindTo := valueEndPos - int64(length) + 4
			source.ToggleByteOrder()
			if err := source.Seek(rewindTo); err != nil {
				return err
			}
			armSentinel = false
			continue
		}

		if elem.VR == types.VR_SQ {
			if err := p.parseSequence(ctx, source, implicitVR, armSentinel, elem.Tag, length); err != nil {
				return err
			}
			continue
		}

		if length == undefinedLength {
			// Only SQ and encapsulated Pixel Data legally carry undefined
			// length; any other VR reaching here is a malformed file.
			if elem.Tag == types.TagPixelData {
				raw, err := p.readEncapsulatedFragments(source)
				if err != nil {
					return err
				}
				elem.Value = raw
				p.reg.Dispatch(ctx, elem.Tag, elem.VR, elem.Value)
				continue
			}
			return dicomerr.NewTagError(elem.Tag.Group, elem.Tag.Element, startPos, dicomerr.ErrInconsistentLength)
		}

		p.reg.Dispatch(ctx, elem.Tag, elem.VR, elem.Value)
	}
	return nil
}

// parseSequence descends into an SQ element's items, each framed by an item
// tag (FFFE,E000) and either a defined length or an undefined length
// terminated by an item delimiter (FFFE,E00D). The sequence itself ends at
// its declared length or, if undefined, at a sequence delimiter (FFFE,E0DD).
func (p *Parser) parseSequence(ctx context.Context, source *ByteSource, implicitVR, armSentinel bool, sqTag types.Tag, length uint32) error {
	var seqEnd int64
	undefinedSeq := length == undefinedLength
	if !undefinedSeq {
		seqEnd = source.Position() + int64(length)
	}

	for {
		if !undefinedSeq && source.Position() >= seqEnd {
			return nil
		}
		tagBytes, err := source.Peek(4)
		if err != nil {
			return err
		}
		group := DecodeUint16(tagBytes[0:2], source.BigEndian())
		element := DecodeUint16(tagBytes[2:4], source.BigEndian())
		tag := types.Tag{Group: group, Element: element}

		if tag == types.TagSequenceDelimitation {
			if _, err := source.ReadBytes(8); err != nil { // tag + 4-byte length (always 0)
				return err
			}
			return nil
		}
		if tag != types.TagSequenceItem {
			return dicomerr.NewTagError(group, element, source.Position(), dicomerr.ErrInconsistentLength)
		}

		if _, err := source.ReadBytes(4); err != nil {
			return err
		}
		itemLength, err := source.ReadUint32()
		if err != nil {
			return err
		}

		// Dispatching the enclosing SQ's own tag once per item (rather than
		// once for the whole sequence) lets a callback distinguish "a new
		// item of this sequence started" from "some element arrived with
		// this same tag" without the parser needing to know per-sequence
		// indexing semantics.
		p.reg.Dispatch(ctx, sqTag, types.VR_SQ, nil)

		itemStart := source.Position()
		if itemLength == undefinedLength {
			if err := p.parseItemUntilDelimiter(ctx, source, implicitVR, armSentinel); err != nil {
				return err
			}
		} else {
			itemEnd := itemStart + int64(itemLength)
			if err := p.parseElements(ctx, source, implicitVR, armSentinel, itemEnd); err != nil {
				return err
			}
		}
	}
}

// parseItemUntilDelimiter parses one undefined-length sequence item's
// elements, stopping at its item delimiter (FFFE,E00D) rather than a fixed
// byte offset.
func (p *Parser) parseItemUntilDelimiter(ctx context.Context, source *ByteSource, implicitVR, armSentinel bool) error {
	for {
		tagBytes, err := source.Peek(4)
		if err != nil {
			return err
		}
		group := DecodeUint16(tagBytes[0:2], source.BigEndian())
		element := DecodeUint16(tagBytes[2:4], source.BigEndian())
		if group == types.TagItemDelimitation.Group && element == types.TagItemDelimitation.Element {
			if _, err := source.ReadBytes(8); err != nil {
				return err
			}
			return nil
		}
		elem, length, err := p.readElementWithLength(ctx, source, implicitVR)
		if err != nil {
			return err
		}
		if elem.VR == types.VR_SQ {
			if err := p.parseSequence(ctx, source, implicitVR, armSentinel, elem.Tag, length); err != nil {
				return err
			}
			continue
		}
		p.reg.Dispatch(ctx, elem.Tag, elem.VR, elem.Value)
	}
}

// readEncapsulatedFragments consumes the fragment items of an
// undefined-length Pixel Data element (Basic Offset Table plus compressed
// fragments) up to the sequence delimiter, returning their concatenated raw
// bytes. The Basic Offset Table (the first, often-empty item) is included
// verbatim; item headers are dropped, so a non-empty table is not
// distinguishable from the image bytes that follow it in the result.
func (p *Parser) readEncapsulatedFragments(source *ByteSource) ([]byte, error) {
	var out []byte
	for {
		tagBytes, err := source.Peek(4)
		if err != nil {
			return nil, err
		}
		group := DecodeUint16(tagBytes[0:2], source.BigEndian())
		element := DecodeUint16(tagBytes[2:4], source.BigEndian())
		if group == types.TagSequenceDelimitation.Group && element == types.TagSequenceDelimitation.Element {
			if _, err := source.ReadBytes(8); err != nil {
				return nil, err
			}
			return out, nil
		}
		if group != types.TagSequenceItem.Group || element != types.TagSequenceItem.Element {
			return nil, dicomerr.NewTagError(group, element, source.Position(), dicomerr.ErrInconsistentLength)
		}
		if _, err := source.ReadBytes(4); err != nil {
			return nil, err
		}
		fragLength, err := source.ReadUint32()
		if err != nil {
			return nil, err
		}
		frag, err := source.ReadBytes(int(fragLength))
		if err != nil {
			return nil, err
		}
		out = append(out, frag...)
	}
}

// readElement reads one element and dispatches nothing; it is used only in
// contexts (file meta) where the caller dispatches itself.
func (p *Parser) readElement(ctx context.Context, source *ByteSource, implicitVR bool) (Element, error) {
	elem, _, err := p.readElementWithLength(ctx, source, implicitVR)
	return elem, err
}

// readElementWithLength reads one element's tag, VR, and value bytes,
// returning the element and its declared length (which may be
// 0xFFFFFFFF/undefinedLength for SQ and encapsulated Pixel Data). An SQ
// element's value and an undefined-length element's value are not read, so
// elem.Value is nil for those and the caller walks them itself.
func (p *Parser) readElementWithLength(ctx context.Context, source *ByteSource, implicitVR bool) (Element, uint32, error) {
	startPos := source.Position()

	group, err := source.ReadUint16()
	if err != nil {
		return Element{}, 0, err
	}
	element, err := source.ReadUint16()
	if err != nil {
		return Element{}, 0, err
	}
	tag := types.Tag{Group: group, Element: element}

	var vr string
	var length uint32

	if implicitVR {
		vr = vrForImplicitTag(tag)
		length, err = source.ReadUint32()
		if err != nil {
			return Element{}, 0, err
		}
	} else {
		vrBytes, err := source.ReadBytes(2)
		if err != nil {
			return Element{}, 0, err
		}
		vr = string(vrBytes)
		if types.IsLongFormVR(vr) {
			if _, err := source.ReadBytes(2); err != nil { // reserved
				return Element{}, 0, err
			}
			length, err = source.ReadUint32()
			if err != nil {
				return Element{}, 0, err
			}
		} else {
			l16, err := source.ReadUint16()
			if err != nil {
				return Element{}, 0, err
			}
			length = uint32(l16)
		}
	}

	// Some writers declare native (non-encapsulated) Pixel Data's length as
	// 0xFFFF instead of its true byte count. Unlike a true undefined length
	// (0xFFFFFFFF), this is not an invitation to descend into Item-framed
	// fragments — it is a plain raw sample stream, conventionally the last
	// element in the dataset, so read everything remaining as its value and
	// let the indexer's own Rows/Columns/BitsAllocated accounting decide how
	// many samples that buffer actually holds.
	if tag == types.TagPixelData && length == pixelDataLenAlias {
		value, err := source.ReadBytes(int(source.Remaining()))
		if err != nil {
			return Element{}, 0, err
		}
		return Element{Tag: tag, VR: vr, Value: value}, uint32(len(value)), nil
	}

	// SQ (of defined or undefined length) and encapsulated Pixel Data are
	// left unread here; the caller handles descent/fragment reading for
	// those. Every other VR must have a concrete length we can read straight
	// through.
	if length == undefinedLength || vr == types.VR_SQ {
		return Element{Tag: tag, VR: vr}, length, nil
	}

	if source.Remaining() < int64(length) {
		return Element{}, 0, dicomerr.NewTagError(group, element, startPos, dicomerr.NewLengthError(length, source.Remaining()))
	}
	value, err := source.ReadBytes(int(length))
	if err != nil {
		return Element{}, 0, err
	}
	value = normalizeByteOrder(vr, value, source.BigEndian())
	return Element{Tag: tag, VR: vr, Value: value}, length, nil
}
