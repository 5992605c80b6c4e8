package embedding

import (
	"hash/fnv"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// BERT vocabulary layout: [PAD]=0, [CLS]=101, [SEP]=102, word pieces from 1000 up.
const (
	padID       = 0
	clsID       = 101
	sepID       = 102
	firstWordID = 1000
	vocabSize   = 30522
)

// Encoding is one tokenized input for a BERT-style model: input_ids, attention_mask and
// token_type_ids, each padded to the model's sequence length.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	// Length counts real tokens including [CLS] and [SEP].
	Length int
}

// Tokenizer turns text into a fixed-length Encoding.
type Tokenizer interface {
	Encode(text string, seqLen int) Encoding
}

// HashTokenizer splits text into words on Unicode word boundaries and maps each lowercased
// word to a stable id in the vocabulary range. It stands in for a WordPiece vocab file, so
// vectors are only meaningful relative to each other.
type HashTokenizer struct {
	words *unicode.UnicodeTokenizer
}

// NewHashTokenizer returns a HashTokenizer.
func NewHashTokenizer() *HashTokenizer {
	return &HashTokenizer{words: unicode.NewUnicodeTokenizer()}
}

// Encode returns [CLS] w1 ... wn [SEP] followed by padding. Words past seqLen-2 are dropped.
func (t *HashTokenizer) Encode(text string, seqLen int) Encoding {
	if seqLen < 3 {
		seqLen = 3
	}
	enc := Encoding{
		InputIDs:      make([]int64, seqLen),
		AttentionMask: make([]int64, seqLen),
		TokenTypeIDs:  make([]int64, seqLen),
	}
	ids := []int64{clsID}
	for _, tok := range t.words.Tokenize([]byte(strings.ToLower(text))) {
		if len(ids) == seqLen-1 {
			break
		}
		ids = append(ids, wordID(tok.Term))
	}
	ids = append(ids, sepID)
	for i, id := range ids {
		enc.InputIDs[i] = id
		enc.AttentionMask[i] = 1
	}
	enc.Length = len(ids)
	return enc
}

func wordID(word []byte) int64 {
	h := fnv.New32a()
	_, _ = h.Write(word)
	return firstWordID + int64(h.Sum32()%(vocabSize-firstWordID))
}
