package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AcceptsAnyJSONValue(t *testing.T) {
	for _, raw := range []string{
		`{}`,
		`[]`,
		`{"items":[{"id":1,"name":"sword"}]}`,
		`[1,2,3]`,
		`"just a string"`,
		`42`,
		`null`,
		`  {"a": 1}  `,
	} {
		doc, err := Parse([]byte(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, raw, string(doc))
	}
}

func TestParse_RejectsInvalidInput(t *testing.T) {
	for _, raw := range []string{
		``,
		`   `,
		`not json`,
		`{"a":`,
		`{} {}`,
		`{}}`,
		`{'a': 1}`,
	} {
		_, err := Parse([]byte(raw))
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrInvalidDocument), raw)
	}
}

func TestParse_RejectsInvalidUTF8(t *testing.T) {
	_, err := Parse([]byte("{\"name\":\"\xff\xfe\"}"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocument))
	assert.Equal(t, "invalid document: body is not valid UTF-8", err.Error())
}

func TestParse_EmptyBodyMessage(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
	assert.Equal(t, "invalid document: empty body", err.Error())
}

func TestFormat_PreservesKeyOrderAndCharacters(t *testing.T) {
	doc, err := Parse([]byte(`{"zeta":1,"alpha":{"name":"épée <&>","n":1.50}}`))
	require.NoError(t, err)

	formatted, err := doc.Format("  ")
	require.NoError(t, err)

	want := "{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"name\": \"épée <&>\",\n    \"n\": 1.50\n  }\n}"
	assert.Equal(t, want, string(formatted))
}

func TestFormat_KeepsUnicodeEscapes(t *testing.T) {
	formatted, err := Document(`{"name":"\u00e9p\u00e9e"}`).Format("  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"\\u00e9p\\u00e9e\"\n}", string(formatted))
}

func TestFormat_EmptyIndentCompacts(t *testing.T) {
	doc := Document("{\n  \"a\": [1, 2]\n}")

	formatted, err := doc.Format("")
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, string(formatted))
}

func TestDocument_Valid(t *testing.T) {
	assert.True(t, Document(`{"a":1}`).Valid())
	assert.True(t, EmptyDocument.Valid())
	assert.False(t, Document(``).Valid())
	assert.False(t, Document(`{"a":`).Valid())
	assert.False(t, Document("\x00\x01garbage").Valid())
}
