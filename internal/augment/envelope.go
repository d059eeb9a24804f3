package augment

import "encoding/binary"

// Inscription is the reveal-time payload extracted from a witness
// script's envelope. Only the content type and body are surfaced;
// parent, delegate, and pointer fields are not supported.
type Inscription struct {
	ContentType string
	Body        []byte
}

const (
	opPushData1 = 0x4c
	opPushData2 = 0x4d
	opPushData4 = 0x4e
	opIf        = 0x63
	opEndIf     = 0x68

	// contentTypeTag is the single-byte tag that precedes the
	// content-type value push inside the envelope body.
	contentTypeTag = 0x01
)

type instruction struct {
	isPush bool
	op     byte
	data   []byte
}

// decodeScript walks a raw script/tapscript into its sequence of
// pushes and non-push opcodes. It returns as much as it could parse;
// a truncated pushdata stops decoding without an error, since callers
// only care whether a well-formed envelope is present.
func decodeScript(script []byte) []instruction {
	var out []instruction
	i := 0
	for i < len(script) {
		op := script[i]
		switch {
		case op == 0x00:
			out = append(out, instruction{isPush: true, data: []byte{}})
			i++
		case op >= 1 && op <= 75:
			length := int(op)
			if i+1+length > len(script) {
				return out
			}
			out = append(out, instruction{isPush: true, data: script[i+1 : i+1+length]})
			i += 1 + length
		case op == opPushData1:
			if i+2 > len(script) {
				return out
			}
			length := int(script[i+1])
			if i+2+length > len(script) {
				return out
			}
			out = append(out, instruction{isPush: true, data: script[i+2 : i+2+length]})
			i += 2 + length
		case op == opPushData2:
			if i+3 > len(script) {
				return out
			}
			length := int(binary.LittleEndian.Uint16(script[i+1 : i+3]))
			if i+3+length > len(script) {
				return out
			}
			out = append(out, instruction{isPush: true, data: script[i+3 : i+3+length]})
			i += 3 + length
		case op == opPushData4:
			if i+5 > len(script) {
				return out
			}
			length := int(binary.LittleEndian.Uint32(script[i+1 : i+5]))
			if i+5+length > len(script) {
				return out
			}
			out = append(out, instruction{isPush: true, data: script[i+5 : i+5+length]})
			i += 5 + length
		default:
			out = append(out, instruction{isPush: false, op: op})
			i++
		}
	}
	return out
}

// ParseEnvelopes scans a witness stack for the ordinals reveal
// envelope: OP_FALSE OP_IF "ord" <tag, value>* OP_0 <data>* OP_ENDIF,
// carried in the tapscript (conventionally the second-to-last witness
// item, with the last item being the control block). Only the first
// envelope in the input is extracted.
func ParseEnvelopes(witness [][]byte) []Inscription {
	if len(witness) < 2 {
		return nil
	}
	script := witness[len(witness)-2]
	instrs := decodeScript(script)
	return extractEnvelope(instrs)
}

func extractEnvelope(instrs []instruction) []Inscription {
	for i := 0; i+2 < len(instrs); i++ {
		if !instrs[i].isPush || len(instrs[i].data) != 0 {
			continue
		}
		if instrs[i+1].isPush || instrs[i+1].op != opIf {
			continue
		}
		if !instrs[i+2].isPush || string(instrs[i+2].data) != "ord" {
			continue
		}

		j := i + 3
		var contentType string
		for j < len(instrs) {
			if instrs[j].isPush && len(instrs[j].data) == 0 {
				j++
				break
			}
			if !instrs[j].isPush || j+1 >= len(instrs) || !instrs[j+1].isPush {
				return nil
			}
			tag, value := instrs[j].data, instrs[j+1].data
			if len(tag) == 1 && tag[0] == contentTypeTag {
				contentType = string(value)
			}
			j += 2
		}

		var body []byte
		for j < len(instrs) && instrs[j].isPush {
			body = append(body, instrs[j].data...)
			j++
		}
		if j < len(instrs) && !instrs[j].isPush && instrs[j].op == opEndIf {
			return []Inscription{{ContentType: contentType, Body: body}}
		}
		return nil
	}
	return nil
}
