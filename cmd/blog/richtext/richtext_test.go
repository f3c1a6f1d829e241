package richtext

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordCount(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want int
	}{
		{name: "empty", in: "", want: 0},
		{name: "only whitespace", in: " \t\n ", want: 0},
		{name: "single", in: "hooks", want: 1},
		{name: "runs of whitespace", in: "  lorem   ipsum\tdolor\n\nsit ", want: 4},
		{name: "unicode space", in: "olá\u00a0mundo", want: 2},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, WordCount(testCase.in))
		})
	}
}

func TestAsTextSkipsBlocksWithoutText(t *testing.T) {
	rt := RichText{
		Paragraph("Lorem ipsum"),
		{Type: TypeImage},
		Paragraph("dolor sit amet"),
	}

	assert.Equal(t, "Lorem ipsum dolor sit amet", rt.AsText())
	assert.Equal(t, 5, rt.WordCount())
}

func TestBlockPreservesRawJSON(t *testing.T) {
	in := `[{"type":"paragraph","text":"Hello world","spans":[{"start":0,"end":5,"type":"strong"}]},{"type":"image","url":"https://images.prismic.io/x.png","alt":null}]`

	var rt RichText
	require.NoError(t, json.Unmarshal([]byte(in), &rt))

	require.Len(t, rt, 2)
	assert.Equal(t, TypeParagraph, rt[0].Type)
	assert.Equal(t, "Hello world", rt[0].Text)
	assert.Equal(t, TypeImage, rt[1].Type)

	out, err := json.Marshal(rt)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestBlockMarshalWithoutRaw(t *testing.T) {
	out, err := json.Marshal(Paragraph("plain"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"paragraph","text":"plain","spans":[]}`, string(out))
}
