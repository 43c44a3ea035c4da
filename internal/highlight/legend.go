package highlight

// TokenTypes is the semantic token legend, in index order.
var TokenTypes = []string{
	"axiom",
	"comment",
	"constructor",
	"error",
	"function",
	"type",
	"keyword",
	"module",
	"number",
	"string",
}

// TokenModifiers are registered with the client but never set.
var TokenModifiers = []string{"declaration", "documentation"}

var tokenTypeIndex = func() map[string]int {
	m := make(map[string]int, len(TokenTypes))
	for i, name := range TokenTypes {
		m[name] = i
	}
	return m
}()

// EncodeTokenType maps a compiler face name onto the legend. "judoc" renders
// as a comment; "notInLegend" is deliberately out of range so clients skip
// it; anything else unknown falls back to index 0.
func EncodeTokenType(kind string) int {
	if kind == "judoc" {
		return tokenTypeIndex["comment"]
	}
	if kind == "notInLegend" {
		return len(TokenTypes) + 2
	}
	if i, ok := tokenTypeIndex[kind]; ok {
		return i
	}
	return 0
}
