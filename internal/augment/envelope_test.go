package augment

import "testing"

func pushOp(data []byte) []byte {
	if len(data) == 0 {
		return []byte{0x00}
	}
	return append([]byte{byte(len(data))}, data...)
}

func buildEnvelope(contentType string, body []byte) []byte {
	var script []byte
	script = append(script, 0x00)           // OP_FALSE
	script = append(script, opIf)           // OP_IF
	script = append(script, pushOp([]byte("ord"))...)
	script = append(script, pushOp([]byte{contentTypeTag})...)
	script = append(script, pushOp([]byte(contentType))...)
	script = append(script, 0x00) // terminator
	script = append(script, pushOp(body)...)
	script = append(script, opEndIf)
	return script
}

func TestParseEnvelopes_WellFormed(t *testing.T) {
	script := buildEnvelope("text/plain;charset=utf-8", []byte("hello"))
	witness := [][]byte{script, {0xc0}}

	insc := ParseEnvelopes(witness)
	if len(insc) != 1 {
		t.Fatalf("got %d inscriptions, want 1", len(insc))
	}
	if insc[0].ContentType != "text/plain;charset=utf-8" {
		t.Errorf("content type = %q", insc[0].ContentType)
	}
	if string(insc[0].Body) != "hello" {
		t.Errorf("body = %q, want hello", insc[0].Body)
	}
}

func TestParseEnvelopes_ChunkedBody(t *testing.T) {
	var script []byte
	script = append(script, 0x00, opIf)
	script = append(script, pushOp([]byte("ord"))...)
	script = append(script, pushOp([]byte{contentTypeTag})...)
	script = append(script, pushOp([]byte("application/json"))...)
	script = append(script, 0x00) // terminator
	script = append(script, pushOp([]byte("chunk-one-"))...)
	script = append(script, pushOp([]byte("chunk-two"))...)
	script = append(script, opEndIf)

	witness := [][]byte{script, {0xc0}}
	insc := ParseEnvelopes(witness)
	if len(insc) != 1 || string(insc[0].Body) != "chunk-one-chunk-two" {
		t.Fatalf("got %+v", insc)
	}
}

func TestParseEnvelopes_NoEnvelope(t *testing.T) {
	witness := [][]byte{{0x51, 0x52}, {0xc0}}
	if insc := ParseEnvelopes(witness); insc != nil {
		t.Errorf("expected nil, got %+v", insc)
	}
}

func TestParseEnvelopes_TooFewItems(t *testing.T) {
	if insc := ParseEnvelopes([][]byte{{0x00}}); insc != nil {
		t.Errorf("expected nil for single-item witness, got %+v", insc)
	}
}
