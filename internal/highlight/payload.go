package highlight

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedPayload reports highlight output that is not the expected
// {"face","goto","doc"} shape.
var ErrMalformedPayload = errors.New("malformed highlight payload")

// Payload is the decoded output of `juvix dev highlight --format json`,
// with every position already converted to 0-indexed coordinates.
type Payload struct {
	Face []FaceToken
	Goto []GotoTarget
	Doc  []HoverEntry
}

// TargetFiles returns the distinct files the goto entries point into,
// other than path itself, in first-seen order.
func (p *Payload) TargetFiles(path string) []string {
	if p == nil {
		return nil
	}
	seen := map[string]bool{path: true}
	var out []string
	for _, g := range p.Goto {
		if seen[g.TargetFile] {
			continue
		}
		seen[g.TargetFile] = true
		out = append(out, g.TargetFile)
	}
	return out
}

type wirePayload struct {
	Face []json.RawMessage `json:"face"`
	Goto []json.RawMessage `json:"goto"`
	Doc  []json.RawMessage `json:"doc"`
}

// Decode parses a highlight payload. Any structural problem yields an error
// wrapping ErrMalformedPayload and no partial result.
func Decode(data []byte) (*Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}
	var wire wirePayload
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	p := &Payload{
		Face: make([]FaceToken, 0, len(wire.Face)),
		Goto: make([]GotoTarget, 0, len(wire.Goto)),
		Doc:  make([]HoverEntry, 0, len(wire.Doc)),
	}
	for i, raw := range wire.Face {
		tok, err := decodeFace(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: face[%d]: %v", ErrMalformedPayload, i, err)
		}
		p.Face = append(p.Face, tok)
	}
	for i, raw := range wire.Goto {
		target, err := decodeGoto(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: goto[%d]: %v", ErrMalformedPayload, i, err)
		}
		p.Goto = append(p.Goto, target)
	}
	for i, raw := range wire.Doc {
		entry, err := decodeDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: doc[%d]: %v", ErrMalformedPayload, i, err)
		}
		p.Doc = append(p.Doc, entry)
	}
	return p, nil
}

func decodeFace(raw json.RawMessage) (FaceToken, error) {
	parts, err := splitTuple(raw, 2)
	if err != nil {
		return FaceToken{}, err
	}
	iv, err := decodeInterval(parts[0])
	if err != nil {
		return FaceToken{}, err
	}
	var kind string
	if err := json.Unmarshal(parts[1], &kind); err != nil {
		return FaceToken{}, fmt.Errorf("token type: %v", err)
	}
	return FaceToken{Interval: iv, TokenType: kind}, nil
}

func decodeGoto(raw json.RawMessage) (GotoTarget, error) {
	parts, err := splitTuple(raw, 2)
	if err != nil {
		return GotoTarget{}, err
	}
	src, err := decodeInterval(parts[0])
	if err != nil {
		return GotoTarget{}, err
	}
	dst, err := splitTuple(parts[1], 3)
	if err != nil {
		return GotoTarget{}, fmt.Errorf("target: %v", err)
	}
	var file string
	if err := json.Unmarshal(dst[0], &file); err != nil {
		return GotoTarget{}, fmt.Errorf("target file: %v", err)
	}
	line, err := decodeNumber(dst[1])
	if err != nil {
		return GotoTarget{}, fmt.Errorf("target line: %v", err)
	}
	col, err := decodeNumber(dst[2])
	if err != nil {
		return GotoTarget{}, fmt.Errorf("target column: %v", err)
	}
	return GotoTarget{
		Source:         src,
		Interval:       ColumnInterval{Start: src.StartCol, End: src.StartCol + src.Length - 1},
		TargetFile:     file,
		TargetLine:     maxZero(line - 1),
		TargetStartCol: maxZero(col - 1),
	}, nil
}

func decodeDoc(raw json.RawMessage) (HoverEntry, error) {
	parts, err := splitTuple(raw, 2)
	if err != nil {
		return HoverEntry{}, err
	}
	iv, err := decodeInterval(parts[0])
	if err != nil {
		return HoverEntry{}, err
	}
	var text string
	if err := json.Unmarshal(parts[1], &text); err != nil {
		return HoverEntry{}, fmt.Errorf("doc text: %v", err)
	}
	return HoverEntry{Interval: iv, Text: text}, nil
}

// decodeInterval reads [file, line, col, length] or
// [file, line, col, length, endLine, endCol] in 1-indexed form.
func decodeInterval(raw json.RawMessage) (RawInterval, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return RawInterval{}, fmt.Errorf("interval: %v", err)
	}
	if len(parts) != 4 && len(parts) != 6 {
		return RawInterval{}, fmt.Errorf("interval: want 4 or 6 elements, got %d", len(parts))
	}
	var file string
	if err := json.Unmarshal(parts[0], &file); err != nil {
		return RawInterval{}, fmt.Errorf("interval file: %v", err)
	}
	nums := make([]int, len(parts)-1)
	for i := range nums {
		n, err := decodeNumber(parts[i+1])
		if err != nil {
			return RawInterval{}, fmt.Errorf("interval field %d: %v", i+1, err)
		}
		nums[i] = n
	}
	iv := RawInterval{
		File:     file,
		Line:     maxZero(nums[0] - 1),
		StartCol: maxZero(nums[1] - 1),
		Length:   maxZero(nums[2]),
	}
	if len(nums) == 5 {
		iv.EndLine = maxZero(nums[3] - 1)
		iv.EndCol = maxZero(nums[4] - 1)
	} else {
		iv.EndLine = iv.Line
		iv.EndCol = maxZero(iv.StartCol + iv.Length - 1)
	}
	return iv, nil
}

func splitTuple(raw json.RawMessage, want int) ([]json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, err
	}
	if len(parts) != want {
		return nil, fmt.Errorf("want %d elements, got %d", want, len(parts))
	}
	return parts, nil
}

// decodeNumber accepts JSON numbers and numeric strings.
func decodeNumber(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return int(v), nil
		}
		return 0, fmt.Errorf("not an integer: %s", n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}
	return strconv.Atoi(s)
}

func maxZero(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
