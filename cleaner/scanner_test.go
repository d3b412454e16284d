package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipNonCode(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"plain code", `abc`, 0},
		{"string", `"a)b";`, 5},
		{"escaped quote", `"a\")";`, 6},
		{"verbatim string", `@"x"")";`, 7},
		{"char literal", `')';`, 3},
		{"line comment", "// ) ;\nx", 6},
		{"block comment", "/* ) */x", 7},
		{"unterminated string", "\"abc\nx", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, skipNonCode(tt.doc, 0))
		})
	}
}

func TestMatchClose(t *testing.T) {
	doc := `f(a, g(b), "c)", new[] { 1 }, x => x.Y) + 1`
	open := strings.IndexByte(doc, '(')

	closing, ok := matchClose(doc, open)

	require.True(t, ok)
	assert.Equal(t, strings.Index(doc, ") + 1"), closing)
}

func TestMatchClose_Unbalanced(t *testing.T) {
	_, ok := matchClose(`f(a, g(b)`, 1)
	assert.False(t, ok)

	_, ok = matchClose(`f(a]`, 1)
	assert.False(t, ok)
}

func TestScanChain(t *testing.T) {
	terminators := map[string]bool{"Property": true, "HasIndex": true}

	t.Run("chained calls up to semicolon", func(t *testing.T) {
		doc := `
    .WithMany("Tags") // owner
    .HasForeignKey("CustomerId1")
    .IsRequired();
b.Navigation("Customer");`

		end, calls, err := scanChain(doc, 0, "b", terminators)

		require.NoError(t, err)
		assert.Equal(t, strings.Index(doc, ";")+1, end)
		require.Len(t, calls, 3)
		assert.Equal(t, "WithMany", calls[0].Name)
		assert.Equal(t, `"Tags"`, calls[0].Args)
		assert.Equal(t, "HasForeignKey", calls[1].Name)
		assert.Equal(t, "IsRequired", calls[2].Name)
	})

	t.Run("generic chained call", func(t *testing.T) {
		doc := `.HasConversion<string>();`

		end, calls, err := scanChain(doc, 0, "b", terminators)

		require.NoError(t, err)
		assert.Equal(t, len(doc), end)
		require.Len(t, calls, 1)
		assert.Equal(t, "HasConversion", calls[0].Name)
	})

	t.Run("stops at next declaration", func(t *testing.T) {
		doc := `
    .HasColumnType("uuid")

b.HasIndex("CustomerId");`

		_, calls, err := scanChain(doc, 0, "b", terminators)

		require.Error(t, err)
		assert.Equal(t, "reached b.HasIndex before ';'", err.Error())
		assert.Len(t, calls, 1)
	})

	t.Run("terminator in the chain", func(t *testing.T) {
		_, _, err := scanChain(`.Property("x");`, 0, "b", terminators)

		require.Error(t, err)
		assert.Contains(t, err.Error(), ".Property")
	})

	t.Run("end of file", func(t *testing.T) {
		_, _, err := scanChain(`.IsRequired()`, 0, "b", terminators)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "end of file")
	})

	t.Run("unexpected token", func(t *testing.T) {
		_, _, err := scanChain(` }`, 0, "b", terminators)

		require.Error(t, err)
	})
}

func TestTopLevelStrings(t *testing.T) {
	got := topLevelStrings(`"TenantId", "CustomerId1", x => x.Is("Nested1")`)

	assert.Equal(t, []string{"TenantId", "CustomerId1"}, got)
}

func TestWiden(t *testing.T) {
	doc := "a\n  stmt;\n\nb\n"
	start := strings.Index(doc, "stmt")
	end := start + len("stmt;")

	assert.Equal(t, span{2, 10}, widen(doc, start, end, false))
	assert.Equal(t, span{2, 11}, widen(doc, start, end, true))

	inline := "x = 1; stmt;\n"
	s := strings.Index(inline, "stmt")
	assert.Equal(t, span{s, s + 5}, widen(inline, s, s+5, true))
}
