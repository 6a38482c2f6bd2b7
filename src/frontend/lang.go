package frontend

type reservedItem struct {
	val string
	typ itemType
}

// rw contains the set of all reserved keywords of the source language.
// The first dimension equals the length of the word. The second dimension
// is the slice of all words of that length. Indexing by length and
// searching should be faster than using a hash table.
var rw = [...][]reservedItem{
	// One-grams
	{},
	// Two-grams
	{
		{val: "if", typ: IF},
	},
	// Three-grams
	{
		{val: "int", typ: INT},
	},
	// Four-grams
	{
		{val: "byte", typ: BYTE},
		{val: "void", typ: VOID},
		{val: "true", typ: TRUE},
		{val: "else", typ: ELSE},
		{val: "bool", typ: BOOL},
	},
	// Five-grams
	{
		{val: "break", typ: BREAK},
		{val: "false", typ: FALSE},
		{val: "while", typ: WHILE},
	},
	// Six-grams
	{
		{val: "return", typ: RETURN},
		{val: "string", typ: STRINGTYPE},
	},
	// Seven-grams
	{},
	// Eight-grams
	{
		{val: "continue", typ: CONTINUE},
	},
}

// isKeyword returns true if the string s is a reserved keyword. On return
// of true the itemType of the keyword is returned. On return of false the
// itemType is either IDENTIFIER or itemError. Note that the built-in
// functions print and printi are deliberately NOT reserved words: they are
// ordinary identifiers resolved against the function table, like any
// other function call.
func isKeyword(s string) (bool, itemType) {
	if len(s) == 0 {
		return false, itemError
	}
	if len(s) > len(rw) {
		return false, IDENTIFIER
	}

	for _, e1 := range rw[len(s)-1] {
		if e1.val == s {
			return true, e1.typ
		}
	}
	return false, IDENTIFIER
}
