package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitter_Split(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
		want    []string
	}{
		{name: "fits", size: 1024, overlap: 128, text: "hola mundo", want: []string{"hola mundo"}},
		{name: "empty", size: 10, text: "   ", want: []string{}},
		{name: "words", size: 10, text: "aaaa bbbb cccc", want: []string{"aaaa bbbb", "cccc"}},
		{name: "overlap", size: 10, overlap: 5, text: "aaaa bbbb cccc", want: []string{"aaaa bbbb", "bbbb cccc"}},
		{name: "paragraphs", size: 20, text: "uno dos tres\n\ncuatro cinco seis", want: []string{"uno dos tres", "cuatro cinco seis"}},
		{name: "characters", size: 4, text: "abcdefghij", want: []string{"abcd", "efgh", "ij"}},
		{name: "recursive", size: 10, text: "aaaa bbbb cccc\n\nxy", want: []string{"aaaa bbbb", "cccc", "xy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSplitter(tt.size, tt.overlap).Split(tt.text))
		})
	}
}

func TestSplitter_ChunksRespectSize(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("La resistencia del concreto se mide a los veintiocho días. ")
		if i%7 == 0 {
			sb.WriteString("\n\n")
		}
		if i%3 == 0 {
			sb.WriteString("\n")
		}
	}

	splitter := NewSplitter(1024, 128)
	chunks := splitter.Split(sb.String())
	assert.Greater(t, len(chunks), 5)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 1024)
		assert.NotEmpty(t, chunk)
	}
}

func TestNewSplitter_Defaults(t *testing.T) {
	splitter := NewSplitter(0, 2000)
	assert.Equal(t, 1024, splitter.ChunkSize)
	assert.Zero(t, splitter.ChunkOverlap)
	assert.Equal(t, DefaultSeparators, splitter.Separators)
}
